package config

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "data/reports.db"
	}
	if cfg.Gallery.LabelsPath == "" {
		cfg.Gallery.LabelsPath = "species_labels.json"
	}
	if cfg.Gallery.GalleryPath == "" {
		cfg.Gallery.GalleryPath = "assets/models/species_embeddings.json"
	}
	if cfg.Gallery.BatchSize == 0 {
		cfg.Gallery.BatchSize = 100
	}
	if cfg.Gallery.Prompt.Format == "" {
		cfg.Gallery.Prompt.Format = "a photo of {label}"
	}
	if cfg.Gallery.Prompt.Overrides == nil {
		cfg.Gallery.Prompt.Overrides = map[string]string{
			"Human": "a photo of a human person man woman child Homo sapiens",
		}
	}

	applyModelDefaults(&cfg.Models.Reference, "fp32", "assets/models/bioclip2_visual_fp32.onnx", "fp32")
	applyModelDefaults(&cfg.Models.Candidate, "int8", "assets/models/bioclip2_model_int8.onnx", "int8")

	text := &cfg.Models.Text
	if text.Path == "" {
		text.Path = "assets/models/bioclip2_text_fp32.onnx"
	}
	if text.Dimensions == 0 {
		text.Dimensions = 768
	}
	if text.ContextLength == 0 {
		text.ContextLength = 77
	}
	if text.BatchSize == 0 {
		text.BatchSize = cfg.Gallery.BatchSize
	}
	if text.InputName == "" {
		text.InputName = "input_ids"
	}
	if text.OutputName == "" {
		text.OutputName = "text_features"
	}
	if text.CacheSize == 0 {
		text.CacheSize = 4096
	}

	v := &cfg.Verify
	if v.ImageSize == 0 {
		v.ImageSize = 224
	}
	if v.NoiseProbes == 0 {
		v.NoiseProbes = 5
	}
	if v.NoiseScale == 0 {
		v.NoiseScale = 0.5
	}
	if v.Seed == 0 {
		v.Seed = 42
	}
	if v.CollapseThreshold == 0 {
		v.CollapseThreshold = 0.999
	}
	if v.VarianceThreshold == 0 {
		v.VarianceThreshold = 0.90
	}
	if v.TargetLabel == "" {
		v.TargetLabel = "Human"
	}
	if v.TopK == 0 {
		v.TopK = 3
	}

	if cfg.Export.OutputPath == "" {
		cfg.Export.OutputPath = cfg.Models.Candidate.Path
	}
	if cfg.Export.MinSizeMB == 0 {
		cfg.Export.MinSizeMB = 10
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 500
	}
}

func applyModelDefaults(m *ModelConfig, name, path, precision string) {
	if m.Name == "" {
		m.Name = name
	}
	if m.Path == "" {
		m.Path = path
	}
	if m.Precision == "" {
		m.Precision = precision
	}
	if m.ImageSize == 0 {
		m.ImageSize = 224
	}
	if m.OutputDim == 0 {
		m.OutputDim = 768
	}
	if m.InputName == "" {
		m.InputName = "pixel_values"
	}
	if m.OutputName == "" {
		m.OutputName = "image_features"
	}
}
