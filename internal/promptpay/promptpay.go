package promptpay

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// PromptPay payload builder following the EMVCo merchant-presented QR
// layout used by Thai banks. The payload is a flat list of tag-length-value
// fields closed by a CRC16 checksum.

const (
	idPayloadFormat       = "00"
	idPointOfInitiation   = "01"
	idMerchantAccountInfo = "29"
	idCurrency            = "53"
	idAmount              = "54"
	idCountryCode         = "58"
	idCRC                 = "63"

	promptPayAID = "A000000677010111"

	// ISO 4217 numeric code for Thai Baht.
	currencyTHB = "764"
)

func tlv(id, value string) string {
	return fmt.Sprintf("%s%02d%s", id, len(value), value)
}

// normalizeTarget converts a Thai phone number to the 0066 international
// form. A 13-digit national ID passes through unchanged.
func normalizeTarget(target string) (tag, value string, err error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, target)

	switch {
	case len(digits) == 10 && strings.HasPrefix(digits, "0"):
		return "01", "0066" + digits[1:], nil
	case len(digits) == 13:
		return "02", digits, nil
	default:
		return "", "", fmt.Errorf("invalid promptpay target %q", target)
	}
}

// BuildPayload assembles a dynamic PromptPay payload for the given
// target (phone number or national ID) and amount in Baht.
func BuildPayload(target string, amount float64) (string, error) {
	tag, value, err := normalizeTarget(target)
	if err != nil {
		return "", err
	}

	merchant := tlv("00", promptPayAID) + tlv(tag, value)

	payload := tlv(idPayloadFormat, "01") +
		tlv(idPointOfInitiation, "12") +
		tlv(idMerchantAccountInfo, merchant) +
		tlv(idCurrency, currencyTHB)
	if amount > 0 {
		payload += tlv(idAmount, fmt.Sprintf("%.2f", amount))
	}
	payload += tlv(idCountryCode, "TH")

	payload += idCRC + "04"
	payload += fmt.Sprintf("%04X", crc16(payload))
	return payload, nil
}

// GenerateQR renders a payload as a PNG QR image.
func GenerateQR(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode promptpay qr: %w", err)
	}
	return png, nil
}

// crc16 is CRC-16/CCITT-FALSE, the variant the PromptPay spec mandates.
func crc16(s string) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range []byte(s) {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
