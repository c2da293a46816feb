package model

// Contact holds the operator-supplied values written into contact forms.
// All three are free text and are used verbatim.
type Contact struct {
	// Email is written into the first field that looks like an email input.
	Email string `json:"email"`

	// Phone is written into the first field that looks like a phone input.
	Phone string `json:"phone"`

	// Message is written into the first textarea that looks like a message body.
	Message string `json:"message"`
}

// IsEmpty reports whether no contact value is set.
func (c Contact) IsEmpty() bool {
	return c.Email == "" && c.Phone == "" && c.Message == ""
}
