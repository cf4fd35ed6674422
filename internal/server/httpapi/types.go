package httpapi

// Request and response bodies for the JSON API. The encryption key itself
// travels in the X-Encryption-Key header on protected record routes, not in
// any of these bodies.

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// authResponse is returned by register and login. EncryptionKey is the hex
// user key, handed to the client exactly once per session.
type authResponse struct {
	UserID        string `json:"user_id"`
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	EncryptionKey string `json:"encryption_key"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type personRequest struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	LastName   string `json:"last_name"`
	Nickname   string `json:"nickname"`
	BirthDate  string `json:"birth_date"`
	DeathDate  string `json:"death_date"`
	Notes      string `json:"notes"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
}

type personResponse struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name,omitempty"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Nickname   string `json:"nickname,omitempty"`
	BirthDate  string `json:"birth_date,omitempty"`
	DeathDate  string `json:"death_date,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Address    string `json:"address,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type createDocumentRequest struct {
	FileName string `json:"file_name"`
}

type documentUploadResponse struct {
	DocumentID string `json:"document_id"`
	URL        string `json:"url"`
	DataKey    string `json:"data_key"`
}

type documentDownloadResponse struct {
	FileName string `json:"file_name"`
	URL      string `json:"url"`
	DataKey  string `json:"data_key"`
}

type documentResponse struct {
	ID           string `json:"id"`
	FileName     string `json:"file_name"`
	UploadStatus string `json:"upload_status"`
}

type idResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}
