package intel

import (
	"strings"

	"neorecon/internal/core/model"
)

// cveRecord CVE JSON 5.x 记录 (MITRE cveawg / CIRCL vulnerability-lookup)
// 老版本接口把 descriptions/references 放在顶层，两种位置都读
type cveRecord struct {
	Descriptions []langValue `json:"descriptions"`
	References   []struct {
		URL string `json:"url"`
	} `json:"references"`
	Containers struct {
		CNA struct {
			Descriptions []langValue `json:"descriptions"`
			References   []struct {
				URL string `json:"url"`
			} `json:"references"`
			ProblemTypes []struct {
				Descriptions []struct {
					CWEID string `json:"cweId"`
				} `json:"descriptions"`
			} `json:"problemTypes"`
			Metrics []struct {
				CvssV31 *cvssBlock `json:"cvssV3_1"`
				CvssV30 *cvssBlock `json:"cvssV3_0"`
			} `json:"metrics"`
		} `json:"cna"`
	} `json:"containers"`
}

type langValue struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type cvssBlock struct {
	BaseScore    flexFloat `json:"baseScore"`
	BaseSeverity string    `json:"baseSeverity"`
}

func (r *cveRecord) description() string {
	for _, list := range [][]langValue{r.Containers.CNA.Descriptions, r.Descriptions} {
		for _, d := range list {
			if strings.HasPrefix(d.Lang, "en") && d.Value != "" {
				return d.Value
			}
		}
	}
	return noDescription
}

func (r *cveRecord) references() []string {
	var refs []string
	for _, ref := range r.Containers.CNA.References {
		if ref.URL != "" {
			refs = append(refs, ref.URL)
		}
	}
	for _, ref := range r.References {
		if ref.URL != "" {
			refs = append(refs, ref.URL)
		}
	}
	return refs
}

func (r *cveRecord) cwe() *string {
	for _, pt := range r.Containers.CNA.ProblemTypes {
		for _, d := range pt.Descriptions {
			if strings.HasPrefix(d.CWEID, "CWE-") {
				return model.String(d.CWEID)
			}
		}
	}
	return nil
}

// score 优先 v3.1
func (r *cveRecord) score() (float64, string, bool) {
	for _, m := range r.Containers.CNA.Metrics {
		for _, b := range []*cvssBlock{m.CvssV31, m.CvssV30} {
			if b != nil && b.BaseScore.ptr() != nil {
				return *b.BaseScore.ptr(), b.BaseSeverity, true
			}
		}
	}
	return 0, "", false
}

func (r *cveRecord) empty() bool {
	return len(r.Descriptions) == 0 && len(r.Containers.CNA.Descriptions) == 0
}
