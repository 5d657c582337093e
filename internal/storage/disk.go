package storage

import (
	"os"
	"path/filepath"
)

// ExternalDataSuffix is appended to a model path to name its external weight file.
const ExternalDataSuffix = ".data"

// ArtifactFiles is the on-disk footprint of one ONNX model artifact.
type ArtifactFiles struct {
	ModelPath    string `json:"model_path"`
	ModelBytes   int64  `json:"model_bytes"`
	SidecarPath  string `json:"sidecar_path,omitempty"`
	SidecarBytes int64  `json:"sidecar_bytes,omitempty"`
}

// Total returns the model size plus any external data.
func (a ArtifactFiles) Total() int64 {
	return a.ModelBytes + a.SidecarBytes
}

// StatArtifact measures the model at path and its ".data" sidecar if one exists.
// A missing model file is returned as an os.IsNotExist error.
func StatArtifact(path string) (ArtifactFiles, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ArtifactFiles{}, err
	}
	files := ArtifactFiles{ModelPath: path, ModelBytes: info.Size()}
	sidecar := path + ExternalDataSuffix
	n, err := DiskUsageBytes(sidecar)
	if err != nil {
		return ArtifactFiles{}, err
	}
	if n > 0 {
		files.SidecarPath = sidecar
		files.SidecarBytes = n
	}
	return files, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths are skipped (contribute 0); other errors are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if info.IsDir() {
			n, err := dirSize(p)
			if err != nil {
				return 0, err
			}
			total += n
		} else {
			total += info.Size()
		}
	}
	return total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
