package brandsite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnfence(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, unfence("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, unfence("Here you go:\r\n```\r\n{\"a\": 1}\r\n```\ntrailing"))
	assert.Equal(t, "no fence", unfence("no fence"))
	assert.Equal(t, "```unterminated", unfence("```unterminated"))
}

func TestNormalizeContent(t *testing.T) {
	bom := append([]byte{0xEF, 0xBB, 0xBF}, []byte(" {\"a\": 1} \n")...)
	assert.Equal(t, `{"a": 1}`, string(normalizeContent(bom)))
	assert.Equal(t, `[1]`, string(normalizeContent([]byte("```json\n[1]\n```"))))
	assert.Equal(t, "key", normalizeHeader("\ufeff Key "))
}
