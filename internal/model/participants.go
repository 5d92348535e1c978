package model

import "strings"

// WeddingParticipants is the participant payload of a wedding booking.
type WeddingParticipants struct {
	Name1    string `json:"name1" validate:"required,max=200"`
	Name2    string `json:"name2" validate:"required,max=200"`
	Address1 string `json:"address1,omitempty" validate:"max=500"`
	Address2 string `json:"address2,omitempty" validate:"max=500"`
	Contact  string `json:"contact,omitempty" validate:"max=100"`
}

// BaptismChild describes the person being baptised.
type BaptismChild struct {
	FullName     string `json:"full_name" validate:"required,max=200"`
	DateOfBirth  *Date  `json:"date_of_birth" validate:"required"`
	PlaceOfBirth string `json:"place_of_birth" validate:"required,max=200"`
	Gender       string `json:"gender" validate:"required,oneof=male female"`
}

// BaptismParents holds the parents' names and contact details.
type BaptismParents struct {
	FatherFullName string `json:"father_full_name" validate:"required,max=200"`
	MotherFullName string `json:"mother_full_name" validate:"required,max=200"`
	Address        string `json:"address" validate:"required,max=500"`
	ContactInfo    string `json:"contact_info" validate:"required,max=100"`
}

// BaptismParticipants is the participant payload of a baptism booking.
type BaptismParticipants struct {
	Church     string         `json:"church" validate:"required,max=200"`
	Officiant  string         `json:"officiant,omitempty" validate:"max=200"`
	Child      BaptismChild   `json:"child"`
	Parents    BaptismParents `json:"parents"`
	Godparents []string       `json:"godparents" validate:"dive,required,max=200"`
}

// Normalize lower-cases the gender so "Male" and "male" are accepted alike.
func (p *BaptismParticipants) Normalize() {
	p.Child.Gender = strings.ToLower(strings.TrimSpace(p.Child.Gender))
}
