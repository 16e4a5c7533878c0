package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"case and trim", "  Coca Cola 1.5L  ", "coca cola 1.5l"},
		{"packaging words", "Pack x 6 Unidades Yerba", "6 yerba"},
		{"detached units", "Tomate Triturado 500 gr", "tomate triturado 500"},
		{"upper case unit", "Aceite Girasol 1,5 LTS", "aceite girasol 1,5"},
		{"unit glued to number stays", "Shampoo Head & Shoulders 400ml", "shampoo head & shoulders 400ml"},
		{"letters inside words survive", "Mermelada Light", "mermelada light"},
		{"unidad vs unidades", "Producto Unidad", ""},
		{"u dot before word", "Huevos 6 u.blancos", "huevos 6 blancos"},
		{"only stop tokens", "x kg", ""},
		{"empty", "", ""},
		{"tabs and newlines", "Arroz\t\tGallo\nOro", "arroz gallo oro"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer(nil)
	inputs := []string{
		"Coca Cola 1.5L",
		"Pack x 6 Unidades Yerba",
		"m m m",
		"u.u.",
		"Leche -m- Entera",
		"  Producto   X   Kg  ",
		"Café Molido 250 g",
		"x-x-x",
	}
	for _, s := range inputs {
		once := n.Normalize(s)
		assert.Equal(t, once, n.Normalize(once), "input %q", s)
	}
}

func TestNormalizeCustomTokens(t *testing.T) {
	n := NewNormalizer([]string{"oferta", " ", "x"})

	assert.Equal(t, "yerba 1 kg", n.Normalize("Oferta Yerba x 1 kg"))
}
