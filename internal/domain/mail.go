package domain

type MailType string

const (
	MailNewAccount         MailType = "new_account"
	MailResetPassword      MailType = "reset_password"
	MailOperatorAssigned   MailType = "operator_assigned"
	MailOperatorUnassigned MailType = "operator_unassigned"
)

type MailMessage struct {
	Type MailType `json:"type"`
	To   string   `json:"to"`
	Data any      `json:"data"`
}

type NewAccountMailData struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"full_name"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type AssignmentMailData struct {
	FullName     string `json:"full_name"`
	LicensePlate string `json:"license_plate"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date,omitempty"`
	Duration     string `json:"duration,omitempty"`
}
