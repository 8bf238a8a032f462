// Package store holds the in-memory entity store and the action dispatcher
// that is the only writer to it. The state lives for one process session;
// there is no persistence behind it.
package store

import (
	"slices"

	"github.com/hasanrafi/aistudio/internal/models"
)

// Snapshot is the complete point-in-time view of all entities. Dispatching a
// successful action replaces the whole snapshot; readers always get a copy
// and can never observe a partial mutation.
type Snapshot struct {
	Users    []models.User
	Payments []models.PaymentRequest
	Images   []models.GeneratedImage
	Settings models.Settings
}

func (s Snapshot) clone() Snapshot {
	s.Users = slices.Clone(s.Users)
	s.Payments = slices.Clone(s.Payments)
	s.Images = slices.Clone(s.Images)
	s.Settings.CreditPackages = slices.Clone(s.Settings.CreditPackages)
	return s
}

func (s Snapshot) UserByID(id string) (models.User, bool) {
	for _, u := range s.Users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

func (s Snapshot) UserByEmail(email string) (models.User, bool) {
	for _, u := range s.Users {
		if u.Email == email {
			return u, true
		}
	}
	return models.User{}, false
}

func (s Snapshot) PaymentByID(id string) (models.PaymentRequest, bool) {
	for _, p := range s.Payments {
		if p.ID == id {
			return p, true
		}
	}
	return models.PaymentRequest{}, false
}

func (s Snapshot) PackageByID(id string) (models.CreditPackage, bool) {
	for _, p := range s.Settings.CreditPackages {
		if p.ID == id {
			return p, true
		}
	}
	return models.CreditPackage{}, false
}

func (s Snapshot) ImageByID(id string) (models.GeneratedImage, bool) {
	for _, img := range s.Images {
		if img.ID == id {
			return img, true
		}
	}
	return models.GeneratedImage{}, false
}

// PendingPayments returns pending requests in most-recent-first order.
func (s Snapshot) PendingPayments() []models.PaymentRequest {
	var out []models.PaymentRequest
	for _, p := range s.Payments {
		if p.Status == models.PaymentPending {
			out = append(out, p)
		}
	}
	return out
}

// PaymentsForUser returns the user's requests in most-recent-first order.
func (s Snapshot) PaymentsForUser(userID string) []models.PaymentRequest {
	var out []models.PaymentRequest
	for _, p := range s.Payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

// ImagesForUser returns the user's history in most-recent-first order.
func (s Snapshot) ImagesForUser(userID string) []models.GeneratedImage {
	var out []models.GeneratedImage
	for _, img := range s.Images {
		if img.UserID == userID {
			out = append(out, img)
		}
	}
	return out
}

func (s Snapshot) replaceUser(u models.User) Snapshot {
	for i := range s.Users {
		if s.Users[i].ID == u.ID {
			s.Users[i] = u
			break
		}
	}
	return s
}

func (s Snapshot) replacePayment(p models.PaymentRequest) Snapshot {
	for i := range s.Payments {
		if s.Payments[i].ID == p.ID {
			s.Payments[i] = p
			break
		}
	}
	return s
}
