package models

// Student is a registered learner. ID and Name are fixed at registration.
type Student struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"nombre" json:"name"`
	Group string `db:"grupo" json:"group"`
	Photo string `db:"foto" json:"photo"`
	Email string `db:"correo_electronico" json:"email"`
}

// RegisterStudentRequest carries the registration form fields. The photo is
// supplied separately as a file.
type RegisterStudentRequest struct {
	ID    string `json:"id" form:"id" validate:"required,max=64"`
	Name  string `json:"name" form:"name" validate:"required,max=160"`
	Group string `json:"group" form:"group" validate:"required,max=32"`
	Email string `json:"email" form:"email" validate:"required,email"`
}

// UpdateStudentRequest holds the editable student fields.
type UpdateStudentRequest struct {
	Group string `json:"group" form:"group" validate:"required,max=32"`
	Email string `json:"email" form:"email" validate:"required,email"`
}
