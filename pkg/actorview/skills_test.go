package actorview

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkillKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Stealth", "ste"},
		{"perception", "per"},
		{"ACROBATICS", "acr"},
		{"ste", "ste"},
		{"Knowledge (arcana)", "kar"},
		{"knowledge   arcana", "kar"},
		{"use magic device", "umd"},
		{"Basket Weaving", "basket weaving"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SkillKey(tt.in))
		})
	}
	assert.Equal(t, "Stealth", SkillName("ste"))
	assert.Equal(t, "xyz", SkillName("xyz"))
}
