package export

import (
	"context"
	"fmt"

	"github.com/hyperjump/shikibetsu/internal/models"
	"github.com/hyperjump/shikibetsu/internal/storage"
)

// MiB is one mebibyte.
const MiB = 1 << 20

// ExistingFile accepts a self-contained model at path of at least minBytes. A smaller file most
// likely keeps its weights in an external data file and is rejected.
func ExistingFile(path string, minBytes int64) Strategy {
	return Strategy{
		Name: "existing_file",
		Export: func(ctx context.Context) (*Artifact, error) {
			files, err := stat(path)
			if err != nil {
				return nil, err
			}
			if files.ModelBytes < minBytes {
				return nil, fmt.Errorf("model is %.1f MiB, below %.1f MiB; weights are likely stored externally",
					float64(files.ModelBytes)/MiB, float64(minBytes)/MiB)
			}
			files.SidecarPath, files.SidecarBytes = "", 0
			return &Artifact{Files: files}, nil
		},
	}
}

// ExternalData accepts a model whose weights live in a ".data" sidecar next to it, provided the
// two together reach minBytes.
func ExternalData(path string, minBytes int64) Strategy {
	return Strategy{
		Name: "external_data",
		Export: func(ctx context.Context) (*Artifact, error) {
			files, err := stat(path)
			if err != nil {
				return nil, err
			}
			if files.SidecarPath == "" {
				return nil, fmt.Errorf("no external data file %s", path+storage.ExternalDataSuffix)
			}
			if files.Total() < minBytes {
				return nil, fmt.Errorf("model and external data total %.1f MiB, below %.1f MiB",
					float64(files.Total())/MiB, float64(minBytes)/MiB)
			}
			return &Artifact{Files: files}, nil
		},
	}
}

// DefaultStrategies returns the built-in chain for path: a self-contained file first, then a
// model with external data.
func DefaultStrategies(path string, minBytes int64) []Strategy {
	return []Strategy{
		ExistingFile(path, minBytes),
		ExternalData(path, minBytes),
	}
}

func stat(path string) (storage.ArtifactFiles, error) {
	files, err := storage.StatArtifact(path)
	if err != nil {
		return files, &models.MissingFileError{Kind: "model", Path: path, Err: err}
	}
	return files, nil
}
