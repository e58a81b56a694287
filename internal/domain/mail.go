package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type WelcomeMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type TaskAssignedMailData struct {
	FullName  string `json:"fullName"`
	TaskTitle string `json:"taskTitle"`
}
