package config

import (
	"path/filepath"

	"chatfilter/internal/classifier"
	"chatfilter/internal/report"
)

func Defaults() *Config {
	t := classifier.DefaultThresholds()
	r := report.DefaultOptions()
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Store: StoreConfig{
			Driver: "sqlite",
			DSN:    filepath.Join("data", "msg.sqlite"),
		},
		Snapshot: SnapshotConfig{
			Path: filepath.Join("data", "analysis", "messages.snapshot"),
		},
		Filter: FilterConfig{
			MaxChars:       t.MaxChars,
			MaxNewlines:    t.MaxNewlines,
			MinWords:       t.MinWords,
			MinUniqueRatio: t.MinUniqueRatio,
		},
		Report: ReportConfig{
			RemovedSamples: r.RemovedSamples,
			CleanSamples:   r.CleanSamples,
			PreviewWidth:   r.PreviewWidth,
		},
	}
}

// Thresholds converts the filter section for classifier.New.
func (f FilterConfig) Thresholds() classifier.Thresholds {
	return classifier.Thresholds{
		MaxChars:       f.MaxChars,
		MaxNewlines:    f.MaxNewlines,
		MinWords:       f.MinWords,
		MinUniqueRatio: f.MinUniqueRatio,
	}
}

// Options converts the report section for report.Build.
func (r ReportConfig) Options() report.Options {
	return report.Options{
		RemovedSamples: r.RemovedSamples,
		CleanSamples:   r.CleanSamples,
		PreviewWidth:   r.PreviewWidth,
	}
}
