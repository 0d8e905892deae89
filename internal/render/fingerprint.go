package render

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Fingerprint deriva la huella de los datos de entrada de un render, usada
// para direccionar el cache.
//
// La serialización es canónica: encoding/json ordena las claves de los maps,
// así que dos inputs lógicamente idénticos producen la misma huella sin
// importar el orden de armado. El orden de los slices sí participa (es
// semánticamente significativo para {{#each}}).
func Fingerprint(data map[string]any) string {
	if len(data) == 0 {
		return "empty"
	}
	raw, err := json.Marshal(data)
	if err != nil {
		// Datos no serializables: huella imposible, forzamos miss estable.
		return "unfingerprintable"
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:16])
}
