package options

import (
	"strings"
)

// CVELookupOptions cve lookup 参数
type CVELookupOptions struct {
	IDs    []string
	Output OutputOptions
}

// Validate 统一转大写并去掉空项，至少一个 ID
func (o *CVELookupOptions) Validate() error {
	ids := o.IDs[:0]
	for _, id := range o.IDs {
		if id = strings.ToUpper(strings.TrimSpace(id)); id != "" {
			ids = append(ids, id)
		}
	}
	o.IDs = ids
	if len(o.IDs) == 0 {
		return invalid("at least one vulnerability id is required")
	}
	o.Output.Normalize()
	return nil
}
