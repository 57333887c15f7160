package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestDeliveryContent_Validate_MissingMode(t *testing.T) {
	var nilContent *DeliveryContent
	assert.ErrorIs(t, nilContent.Validate(), ErrMissingMode)

	assert.ErrorIs(t, (&DeliveryContent{}).Validate(), ErrMissingMode)
	assert.ErrorIs(t, (&DeliveryContent{Mode: "astral"}).Validate(), ErrMissingMode)
}

func TestDeliveryContent_Validate_Digital(t *testing.T) {
	tests := []struct {
		name    string
		digital *DigitalReading
		wantErr error
	}{
		{
			name:    "nil payload",
			digital: nil,
			wantErr: ErrIncompleteContent,
		},
		{
			name:    "zero cards",
			digital: &DigitalReading{SpreadName: "Cruz Celta", Cards: []Card{}},
			wantErr: ErrIncompleteContent,
		},
		{
			name: "single card, blank interpretation, no audio",
			digital: &DigitalReading{Cards: []Card{
				{CardID: "major-0", Name: "O Louco", Interpretation: "   "},
			}},
			wantErr: ErrIncompleteContent,
		},
		{
			name: "single card with interpretation",
			digital: &DigitalReading{Cards: []Card{
				{CardID: "major-0", Name: "O Louco", Interpretation: "A carta revela um novo ciclo."},
			}},
			wantErr: nil,
		},
		{
			name: "blank interpretation but attached audio",
			digital: &DigitalReading{Cards: []Card{
				{CardID: "major-13", Name: "A Morte", Interpretation: "", AudioURL: strPtr("https://cdn.example.com/a.mp3")},
			}},
			wantErr: nil,
		},
		{
			name: "one complete card among empty ones",
			digital: &DigitalReading{Cards: []Card{
				{CardID: "c1", Interpretation: ""},
				{CardID: "c2", Interpretation: "Significado profundo."},
				{CardID: "c3", Interpretation: ""},
			}},
			wantErr: nil,
		},
		{
			name: "whitespace-only audio URL does not count",
			digital: &DigitalReading{Cards: []Card{
				{CardID: "c1", Interpretation: "", AudioURL: strPtr("  ")},
			}},
			wantErr: ErrIncompleteContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := &DeliveryContent{Mode: DeliveryModeDigital, Digital: tt.digital}
			err := content.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeliveryContent_Validate_Physical(t *testing.T) {
	tests := []struct {
		name     string
		physical *PhysicalReading
		wantErr  error
	}{
		{
			name:     "nil payload",
			physical: nil,
			wantErr:  ErrIncompleteContent,
		},
		{
			name:     "zero sections",
			physical: &PhysicalReading{ReadingTitle: "Leitura de Búzios", Sections: []Section{}},
			wantErr:  ErrIncompleteContent,
		},
		{
			name: "section with only whitespace interpretation",
			physical: &PhysicalReading{Sections: []Section{
				{Title: "Abertura", Interpretation: "\t\n "},
			}},
			wantErr: ErrIncompleteContent,
		},
		{
			name: "section with photo only",
			physical: &PhysicalReading{Sections: []Section{
				{Title: "Abertura", PhotoURL: strPtr("https://cdn.example.com/p.jpg")},
			}},
			wantErr: nil,
		},
		{
			name: "section with audio only",
			physical: &PhysicalReading{Sections: []Section{
				{Title: "Abertura", AudioURL: strPtr("https://cdn.example.com/a.ogg")},
			}},
			wantErr: nil,
		},
		{
			name: "section with interpretation",
			physical: &PhysicalReading{Sections: []Section{
				{Title: "Abertura", Interpretation: "Os búzios indicam caminhos abertos."},
			}},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := &DeliveryContent{Mode: DeliveryModePhysical, Physical: tt.physical}
			err := content.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeliveryContent_Validate_IsPure(t *testing.T) {
	content := &DeliveryContent{
		Mode: DeliveryModeDigital,
		Digital: &DigitalReading{Cards: []Card{
			{CardID: "c1", Interpretation: "A carta revela..."},
		}},
	}

	// Repeated validation of the same value must give the same verdict and
	// leave the content untouched.
	for i := 0; i < 3; i++ {
		assert.NoError(t, content.Validate())
	}
	assert.Equal(t, "A carta revela...", content.Digital.Cards[0].Interpretation)
}
