// Package validation contiene validaciones de formato de parámetros OAuth.
package validation

import (
	"regexp"
	"strings"
)

// Un nombre de scope: minúsculas, empieza y termina en [a-z0-9], en el medio
// admite [a-z0-9:_.-]; 1..64 caracteres.
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

// maxScopeNames acota la cantidad de nombres en un parámetro scope.
const maxScopeNames = 32

// ValidScopeName indica si name es un nombre de scope bien formado.
func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}

// ValidScope valida el parámetro scope completo (nombres separados por
// espacios). Vacío es válido: el scope es opcional en /oauth/authorize.
func ValidScope(scope string) bool {
	names := strings.Fields(scope)
	if len(names) > maxScopeNames {
		return false
	}
	for _, n := range names {
		if !ValidScopeName(n) {
			return false
		}
	}
	return true
}
