package reporter

import (
	"encoding/json"
	"io"
	"time"

	"neorecon/internal/core/model"
)

// RenderJSON 缩进的 JSON 数组，空结果输出 []
func RenderJSON(w io.Writer, results []model.ScanResult, _ time.Time) error {
	if results == nil {
		results = []model.ScanResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(results)
}
