package dto

// Request and response shapes of the endpoints kept for existing kiosk
// front-ends. Field names follow those clients.

// DeleteAttendanceRequest is the body of POST /eliminarAsistencia.
type DeleteAttendanceRequest struct {
	ID string `json:"id"`
}

// DeletePhotoRequest is the body of POST /eliminarFoto and DELETE /photos.
type DeletePhotoRequest struct {
	URL string `json:"url"`
}

// SendMailRequest is the body of POST /enviarCorreo.
type SendMailRequest struct {
	Recipient string `json:"destinatario" validate:"required,email"`
	Subject   string `json:"asunto" validate:"required"`
	Message   string `json:"mensaje" validate:"required"`
}

// SyncResponse reports a completed mirror resync.
type SyncResponse struct {
	Success bool `json:"success"`
	Rows    int  `json:"rows"`
}

// DeletePhotoResponse reports whether the image host removed the photo.
type DeletePhotoResponse struct {
	Success  bool   `json:"success"`
	PublicID string `json:"public_id,omitempty"`
}

// MessageResponse is a generic acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
