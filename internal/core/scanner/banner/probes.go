package banner

import (
	"bytes"

	"github.com/lunixbochs/struc"
)

// httpPorts 先发 HTTP/1.0 GET 再读
var httpPorts = map[int]bool{80: true, 443: true, 8080: true, 8443: true}

const httpProbe = "GET / HTTP/1.0\r\nHost: unknown\r\n\r\n"

// 其余端口的默认探测
const defaultProbe = "\r\n"

// mbapReadHolding Modbus/TCP MBAP 头 + 读保持寄存器 (FC 0x03) 请求
type mbapReadHolding struct {
	TransactionID uint16 `struc:"uint16,big"`
	ProtocolID    uint16 `struc:"uint16,big"`
	Length        uint16 `struc:"uint16,big"` // 后续字节数: unit + pdu
	UnitID        uint8  `struc:"uint8"`
	FunctionCode  uint8  `struc:"uint8"`
	StartAddress  uint16 `struc:"uint16,big"`
	Quantity      uint16 `struc:"uint16,big"`
}

// modbusProbe 00 01 00 00 00 06 01 03 00 00 00 0A
func modbusProbe() []byte {
	var buf bytes.Buffer
	frame := &mbapReadHolding{
		TransactionID: 1,
		ProtocolID:    0,
		Length:        6,
		UnitID:        1,
		FunctionCode:  0x03,
		StartAddress:  0,
		Quantity:      10,
	}
	if err := struc.Pack(&buf, frame); err != nil {
		return []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}
	}
	return buf.Bytes()
}

// defaultProbes 端口专用探测载荷
func defaultProbes() map[int][]byte {
	return map[int][]byte{
		21:  []byte("USER anonymous\r\n"),
		22:  []byte("SSH-2.0-NeoRecon\r\n"),
		23:  []byte("\r\n"),
		25:  []byte("EHLO neorecon.local\r\n"),
		110: []byte("USER anonymous\r\n"),
		143: []byte("A001 CAPABILITY\r\n"),
		587: []byte("EHLO neorecon.local\r\n"),
		// RDP X.224 Connection Request
		3389: {0x03, 0x00, 0x00, 0x13, 0x0e, 0xe0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x08, 0x00, 0x03, 0x00, 0x00, 0x00},
		5060: []byte("OPTIONS sip:localhost SIP/2.0\r\n" +
			"Via: SIP/2.0/UDP neorecon:5060\r\n" +
			"Max-Forwards: 70\r\n" +
			"From: <sip:scanner@neorecon>\r\n" +
			"To: <sip:scanner@neorecon>\r\n" +
			"Call-ID: scan123\r\n" +
			"CSeq: 1 OPTIONS\r\n" +
			"Contact: <sip:scanner@neorecon>\r\n" +
			"Accept: application/sdp\r\n" +
			"Content-Length: 0\r\n\r\n"),
		// PJL 打印机状态
		9100: []byte("\x1b%-12345X@PJL INFO STATUS\r\n\x1b%-12345X\r\n"),

		// OT/ICS
		// EtherNet/IP List Identity
		44818: {0x63, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		// BACnet/IP Who-Is
		47808: {0x81, 0x0a, 0x00, 0x0c, 0x01, 0x20, 0xff, 0xff, 0x00, 0xff, 0x10, 0x08},
		502:   modbusProbe(),
		// DNP3 link layer request
		20000: {0x05, 0x64, 0x1a, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x04, 0x01, 0x00, 0x00, 0x01},
		// OPC UA HTTP 端点
		4840: []byte("GET / HTTP/1.1\r\nHost: localhost:4840\r\nUser-Agent: NeoRecon/1.0\r\nConnection: close\r\n\r\n"),
	}
}
