package domain

import "time"

// User es el registro local que espeja una identidad del proveedor externo.
// SubjectID es la clave: el identificador estable que el proveedor asigna
// al principal autenticado. El registro se crea una sola vez y no se muta.
type User struct {
	SubjectID   string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
