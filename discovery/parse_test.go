package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSONResponse(t *testing.T) {
	payload := []byte(`{"dev_sn":"ABC123456","product_name":"BL-P001","dev_name":"Office X1C"}`)

	rec, ok := ParseResponse(payload, "192.168.1.50:2021")
	require.True(t, ok)
	assert.Equal(t, "Office X1C", rec.Name)
	assert.Equal(t, "ABC123456", rec.Serial)
	assert.Equal(t, "X1 Carbon", rec.Model)
	assert.Equal(t, "192.168.1.50", rec.IP)
}

func TestParseHeaderOnlyResponse(t *testing.T) {
	payload := []byte("HTTP/1.1 200 OK\r\n" +
		"USN: 00M09C411500579\r\n" +
		"DevModel.bambu.com: C12\r\n\r\n")

	rec, ok := ParseResponse(payload, "10.0.0.7:2021")
	require.True(t, ok)
	assert.Equal(t, "00M09C411500579", rec.Serial)
	assert.Equal(t, "P1S", rec.Model)
	assert.Equal(t, "P1S (500579)", rec.Name, "synthesized name uses the translated model")
}

func TestParseUSNWithUUIDPrefix(t *testing.T) {
	payload := []byte("USN: uuid:00M09C411500579::urn:device\r\n")

	rec, ok := ParseResponse(payload, "10.0.0.7:2021")
	require.True(t, ok)
	assert.Equal(t, "00M09C411500579", rec.Serial)
}

func TestJSONKeysWinOverHeaders(t *testing.T) {
	payload := []byte("{\"dev_sn\":\"JSONSN\"}\r\nUSN: HEADERSN\r\n")

	rec, ok := ParseResponse(payload, "10.0.0.7:2021")
	require.True(t, ok)
	assert.Equal(t, "JSONSN", rec.Serial, "header scan only fills fields still unset")
}

func TestSerialKeyPriorityOrder(t *testing.T) {
	payload := []byte(`{"sn":"SECOND","dev_sn":"FIRST"}`)

	rec, ok := ParseResponse(payload, "10.0.0.7:2021")
	require.True(t, ok)
	assert.Equal(t, "FIRST", rec.Serial)
}

func TestEmptyJSONValueSkipped(t *testing.T) {
	payload := []byte(`{"dev_sn":"","sn":"FALLBACK"}`)

	rec, ok := ParseResponse(payload, "10.0.0.7:2021")
	require.True(t, ok)
	assert.Equal(t, "FALLBACK", rec.Serial)
}

func TestGenericHeaderFallbacks(t *testing.T) {
	payload := []byte("X-MODEL: ZZ9\r\nFRIENDLY-NAME: My Printer\r\n")

	rec, ok := ParseResponse(payload, "10.0.0.7:2021")
	require.True(t, ok)
	assert.Equal(t, "ZZ9", rec.Model, "unmapped model codes pass through unchanged")
	assert.Equal(t, "My Printer", rec.Name)
}

func TestNameSynthesis(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{
			name:    "model only",
			payload: "DevModel.bambu.com: C11\r\n",
			want:    "P1P at 10.0.0.7",
		},
		{
			name:    "serial only",
			payload: "USN: 00M09C411500579\r\n",
			want:    "Printer 500579",
		},
		{
			name:    "nothing known",
			payload: "HTTP/1.1 200 OK\r\n",
			want:    "Bambu Printer at 10.0.0.7",
		},
		{
			name:    "short serial used whole",
			payload: "USN: AB12\r\nDevModel.bambu.com: C12\r\n",
			want:    "P1S (AB12)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := ParseResponse([]byte(tt.payload), "10.0.0.7:2021")
			require.True(t, ok)
			assert.Equal(t, tt.want, rec.Name)
		})
	}
}

func TestEmptyModelGetsPlaceholder(t *testing.T) {
	rec, ok := ParseResponse([]byte("USN: SN123456\r\n"), "10.0.0.7:2021")
	require.True(t, ok)
	assert.Equal(t, "Bambu Printer", rec.Model)
}

func TestNonUTF8Discarded(t *testing.T) {
	_, ok := ParseResponse([]byte{0xFF, 0xFE, 0x80, 0x81}, "10.0.0.7:2021")
	assert.False(t, ok)
}

func TestSourceIPAlwaysPopulated(t *testing.T) {
	rec, _ := ParseResponse([]byte{0xFF}, "172.16.0.3:40123")
	assert.Equal(t, "172.16.0.3", rec.IP)
}

func TestEscapedQuoteInValue(t *testing.T) {
	payload := []byte(`{"dev_name":"My \"Shop\" Printer","dev_sn":"S1"}`)

	rec, ok := ParseResponse(payload, "10.0.0.7:2021")
	require.True(t, ok)
	assert.Equal(t, `My "Shop" Printer`, rec.Name)
}

func TestFriendlyModelTable(t *testing.T) {
	assert.Equal(t, "X1 Carbon", FriendlyModel("BL-P001"))
	assert.Equal(t, "X1E", FriendlyModel("C13"))
	assert.Equal(t, "H2C", FriendlyModel("O1C2"))
	assert.Equal(t, "ZZ9", FriendlyModel("ZZ9"))
	assert.Equal(t, "Bambu Printer", FriendlyModel(""))
}
