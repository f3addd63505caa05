package detector

// Kind 检测器种类，集合固定，新增检测能力通过新增 Kind 实现
type Kind int

const (
	KindNVD Kind = iota
	KindCIRCL
	KindSignature
	KindICSCert
	KindMitre
)

// defaultOrder 注册顺序，去重时同 ID 保留靠前检测器的结果
var defaultOrder = []Kind{KindNVD, KindCIRCL, KindSignature, KindICSCert, KindMitre}

func (k Kind) String() string {
	switch k {
	case KindNVD:
		return "nvd"
	case KindCIRCL:
		return "circl"
	case KindSignature:
		return "signature"
	case KindICSCert:
		return "ics-cert"
	case KindMitre:
		return "mitre"
	default:
		return "unknown"
	}
}

// Description 检测器说明
func (k Kind) Description() string {
	switch k {
	case KindNVD:
		return "Correlates banners with NVD-backed CVE intelligence"
	case KindCIRCL:
		return "Direct CVE lookups against the CIRCL CVE service"
	case KindSignature:
		return "Offline banner signatures and product version rules"
	case KindICSCert:
		return "Industrial control system advisories for OT protocols"
	case KindMitre:
		return "Maps lookup results to MITRE ATT&CK tactics and techniques"
	default:
		return ""
	}
}

// ParseKind 解析检测器名称
func ParseKind(name string) (Kind, bool) {
	for _, k := range defaultOrder {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}
