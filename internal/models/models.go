package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type UserStatus string

const (
	StatusActive  UserStatus = "active"
	StatusBlocked UserStatus = "blocked"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentRejected PaymentStatus = "rejected"
)

type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Password  string     `json:"-"`
	Credits   int        `json:"credits"`
	Role      Role       `json:"role"`
	Status    UserStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

type CreditPackage struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Price   int    `json:"price"`
}

// PaymentRequest keeps denormalized copies of the package name and credit
// amount taken at submission time, so later catalog edits never change what
// a historical payment was for.
type PaymentRequest struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	UserEmail      string        `json:"user_email"`
	PackageID      string        `json:"package_id"`
	PackageName    string        `json:"package_name"`
	PackageCredits int           `json:"package_credits"`
	TrxID          string        `json:"trx_id"`
	Status         PaymentStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}

type GeneratedImage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Src       string    `json:"src"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

type PaymentDetails struct {
	MethodName    string `json:"method_name"`
	AccountNumber string `json:"account_number"`
	QRCodeURL     string `json:"qr_code_url"`
	YoutubeLink   string `json:"youtube_link,omitempty"`
	TiktokLink    string `json:"tiktok_link,omitempty"`
}

type Settings struct {
	PaymentDetails PaymentDetails  `json:"payment_details"`
	CreditPackages []CreditPackage `json:"credit_packages"`
}
