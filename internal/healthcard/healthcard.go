package healthcard

import (
	"strings"
	"time"
)

// HealthCard is the patient-identity record created at registration.
type HealthCard struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Email         string    `json:"email"`
	NationalID    string    `json:"nationalId"`
	Gender        string    `json:"gender"`
	ContactNumber string    `json:"contactNumber"`
	BloodType     string    `json:"bloodType,omitempty"`
	PhotoURL      string    `json:"photoUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Input carries the card fields of a register or update request. NIC and
// ContactNo are older field names still sent by some clients.
type Input struct {
	FirstName     string `json:"firstName" form:"firstName"`
	LastName      string `json:"lastName" form:"lastName"`
	Email         string `json:"email" form:"email"`
	NationalID    string `json:"nationalId" form:"nationalId"`
	NIC           string `json:"NIC" form:"NIC"`
	Gender        string `json:"gender" form:"gender"`
	ContactNumber string `json:"contactNumber" form:"contactNumber"`
	ContactNo     string `json:"contactNo" form:"contactNo"`
	BloodType     string `json:"bloodType" form:"bloodType"`
}

// normalized trims every field and folds the alias fields into their
// canonical counterparts.
func (in Input) normalized() Input {
	out := Input{
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		Email:         strings.TrimSpace(in.Email),
		NationalID:    strings.TrimSpace(in.NationalID),
		Gender:        strings.TrimSpace(in.Gender),
		ContactNumber: strings.TrimSpace(in.ContactNumber),
		BloodType:     strings.TrimSpace(in.BloodType),
	}
	if out.NationalID == "" {
		out.NationalID = strings.TrimSpace(in.NIC)
	}
	if out.ContactNumber == "" {
		out.ContactNumber = strings.TrimSpace(in.ContactNo)
	}
	return out
}

// missingRequired lists the required fields that are empty, in form order.
func (in Input) missingRequired() []string {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", in.FirstName},
		{"lastName", in.LastName},
		{"email", in.Email},
		{"nationalId", in.NationalID},
		{"gender", in.Gender},
		{"contactNumber", in.ContactNumber},
	}
	var missing []string
	for _, field := range required {
		if field.value == "" {
			missing = append(missing, field.name)
		}
	}
	return missing
}

// apply copies the non-empty fields of in onto card.
func (in Input) apply(card HealthCard) HealthCard {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&card.FirstName, in.FirstName)
	set(&card.LastName, in.LastName)
	set(&card.Email, in.Email)
	set(&card.NationalID, in.NationalID)
	set(&card.Gender, in.Gender)
	set(&card.ContactNumber, in.ContactNumber)
	set(&card.BloodType, in.BloodType)
	return card
}
