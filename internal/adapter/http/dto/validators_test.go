package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPixKey(t *testing.T) {
	tests := []struct {
		name string
		kind string
		key  string
		want bool
	}{
		{"cpf ok", "cpf", "12345678901", true},
		{"cpf too short", "cpf", "1234567890", false},
		{"cpf with punctuation", "cpf", "123.456.789-01", false},
		{"email ok", "email", "leitora@example.com", true},
		{"email missing domain", "email", "leitora@", false},
		{"phone ok", "phone", "+5511987654321", true},
		{"phone without country code", "phone", "11987654321", false},
		{"random ok", "random", "123e4567-e89b-12d3-a456-426614174000", true},
		{"random not a uuid", "random", "not-a-uuid", false},
		{"unknown kind", "iban", "BR1234567890", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPixKey(tt.kind, tt.key))
		})
	}
}

func TestSanitizeStruct(t *testing.T) {
	extra := "  <b>hi</b>  "
	s := struct {
		Name  string
		Extra *string
		Count int
	}{Name: "  <script>x</script>  ", Extra: &extra, Count: 3}

	SanitizeStruct(&s)

	assert.Equal(t, "&lt;script&gt;x&lt;/script&gt;", s.Name)
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", *s.Extra)
	assert.Equal(t, 3, s.Count)
}

func TestDeliveryContentRequest_ToDomain(t *testing.T) {
	audio := "https://cdn.example.com/a.mp3"
	req := DeliveryContentRequest{
		Mode: "digital",
		Digital: &DigitalReadingDTO{
			SpreadName: "Cruz Celta",
			Cards: []CardDTO{
				{CardID: "major-0", Name: "O Louco", Position: "presente", Interpretation: "Novo ciclo.", AudioURL: &audio},
			},
		},
	}

	content := req.ToDomain()
	assert.Equal(t, "digital", string(content.Mode))
	assert.Nil(t, content.Physical)
	assert.Len(t, content.Digital.Cards, 1)
	assert.Equal(t, "O Louco", content.Digital.Cards[0].Name)
	assert.NoError(t, content.Validate())
}
