package output

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"audio-feature-extractor/internal/types"
)

const hexDigits = "0123456789abcdef"

// field 有序键值对，value 为 nil、*float64、*string 或 string
type field struct {
	key   string
	value any
}

// EncodeFeatures 按固定键序编码特征结果，格式与 Python json.dumps 默认输出逐字节一致
func EncodeFeatures(record *types.FeatureRecord) []byte {
	if record == nil {
		record = &types.FeatureRecord{}
	}
	return encodeObject([]field{
		{"bpm", record.BPM},
		{"energy", record.Energy},
		{"loudness", record.Loudness},
		{"spectralFlux", record.SpectralFlux},
		{"musicalKey", record.MusicalKey},
	})
}

// EncodeError 编码错误结果
func EncodeError(message string) []byte {
	return encodeObject([]field{{"error", message}})
}

// encodeObject 输出单行对象，分隔符为 ", " 与 ": "，末尾带换行
func encodeObject(fields []field) []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteString(", ")
		}
		writeString(&buf, f.key)
		buf.WriteString(": ")
		writeValue(&buf, f.value)
	}
	buf.WriteString("}\n")
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, v any) {
	switch v := v.(type) {
	case *float64:
		if v == nil {
			buf.WriteString("null")
			return
		}
		buf.WriteString(FormatFloat(*v))
	case *string:
		if v == nil {
			buf.WriteString("null")
			return
		}
		writeString(buf, *v)
	case string:
		writeString(buf, v)
	default:
		buf.WriteString("null")
	}
}

// FormatFloat 最短往返表示：整数值保留 ".0"，指数 < -4 或 >= 16 时用科学计数法 (如 1e-05, 1e+16)
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}

	// 形如 -1.2345e+06
	s := strconv.FormatFloat(f, 'e', -1, 64)
	sign := ""
	if s[0] == '-' {
		sign = "-"
		s = s[1:]
	}
	mantissa, expPart, _ := strings.Cut(s, "e")
	exp, _ := strconv.Atoi(expPart)
	digits := strings.Replace(mantissa, ".", "", 1)

	// 小数点位于第 decpt 位数字之后
	decpt := exp + 1
	if decpt <= -4 || decpt > 16 {
		out := sign + digits[:1]
		if len(digits) > 1 {
			out += "." + digits[1:]
		}
		expSign := "+"
		if exp < 0 {
			expSign = "-"
			exp = -exp
		}
		expDigits := strconv.Itoa(exp)
		if len(expDigits) < 2 {
			expDigits = "0" + expDigits
		}
		return out + "e" + expSign + expDigits
	}

	switch {
	case decpt <= 0:
		return sign + "0." + strings.Repeat("0", -decpt) + digits
	case decpt >= len(digits):
		return sign + digits + strings.Repeat("0", decpt-len(digits)) + ".0"
	default:
		return sign + digits[:decpt] + "." + digits[decpt:]
	}
}

// writeString 输出 ASCII 字符串字面量，非 ASCII 字符转义为 \uXXXX (必要时使用代理对)
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			switch {
			case r < 0x20 || (r >= 0x7F && r <= 0xFFFF):
				writeUnicodeEscape(buf, r)
			case r > 0xFFFF:
				r -= 0x10000
				writeUnicodeEscape(buf, 0xD800|(r>>10)&0x3FF)
				writeUnicodeEscape(buf, 0xDC00|r&0x3FF)
			default:
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

func writeUnicodeEscape(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[r>>12&0xF])
	buf.WriteByte(hexDigits[r>>8&0xF])
	buf.WriteByte(hexDigits[r>>4&0xF])
	buf.WriteByte(hexDigits[r&0xF])
}
