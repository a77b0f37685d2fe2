package repository

import "errors"

// ErrNotFound indica que la entidad no existe.
var ErrNotFound = errors.New("repository: not found")

// IsNotFound verifica si el error es por entidad inexistente.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
