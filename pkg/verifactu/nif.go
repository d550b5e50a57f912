package verifactu

import (
	"fmt"
	"strings"
)

// letras de control del DNI/NIE (módulo 23).
const nifLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

// NormalizeNIF quita espacios, guiones y el prefijo de país ES.
func NormalizeNIF(nif string) string {
	n := strings.ToUpper(strings.TrimSpace(nif))
	n = strings.NewReplacer(" ", "", "-", "", ".", "").Replace(n)
	return strings.TrimPrefix(n, "ES")
}

// ValidateNIF valida DNI (8 dígitos + letra), NIE (X/Y/Z + 7 dígitos + letra) y el formato de CIF
// (letra + 7 dígitos + control). Para CIF solo se comprueba la estructura.
func ValidateNIF(nif string) error {
	n := NormalizeNIF(nif)
	if len(n) != 9 {
		return fmt.Errorf("verifactu: NIF debe tener 9 caracteres, se recibieron %d", len(n))
	}
	first := n[0]
	switch {
	case first >= '0' && first <= '9':
		return checkLetter(n[:8], n[8])
	case first == 'X' || first == 'Y' || first == 'Z':
		prefix := map[byte]byte{'X': '0', 'Y': '1', 'Z': '2'}[first]
		return checkLetter(string(prefix)+n[1:8], n[8])
	case strings.IndexByte("ABCDEFGHJNPQRSUVW", first) >= 0:
		if !allDigits(n[1:8]) {
			return fmt.Errorf("verifactu: CIF %s con formato inválido", n)
		}
		return nil
	default:
		return fmt.Errorf("verifactu: NIF %s con formato desconocido", n)
	}
}

func checkLetter(digits string, letter byte) error {
	if !allDigits(digits) {
		return fmt.Errorf("verifactu: NIF con dígitos inválidos")
	}
	var num int
	for _, r := range digits {
		num = num*10 + int(r-'0')
	}
	expected := nifLetters[num%23]
	if letter != expected {
		return fmt.Errorf("verifactu: letra de control inválida: esperada %c, recibida %c", expected, letter)
	}
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
