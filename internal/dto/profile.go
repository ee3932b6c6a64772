package dto

// UpdateStudentProfileRequest patches the student's own profile.
type UpdateStudentProfileRequest struct {
	FirstName          *string `json:"firstName,omitempty"`
	LastName           *string `json:"lastName,omitempty"`
	Phone              *string `json:"phone,omitempty"`
	DateOfBirth        *string `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Nationality        *string `json:"nationality,omitempty"`
	CountryOfResidence *string `json:"countryOfResidence,omitempty"`
	PassportNumber     *string `json:"passportNumber,omitempty"`
	Address            *string `json:"address,omitempty"`
	City               *string `json:"city,omitempty"`
}

// UpdateAgentProfileRequest patches the agent's own profile.
type UpdateAgentProfileRequest struct {
	Username    *string `json:"username,omitempty" validate:"omitempty,min=3,max=32"`
	CompanyName *string `json:"companyName,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Country     *string `json:"country,omitempty"`
	Website     *string `json:"website,omitempty" validate:"omitempty,url"`
}

// ReferralLinkResponse carries the agent's shareable signup link.
type ReferralLinkResponse struct {
	Username     string `json:"username"`
	ReferralLink string `json:"referralLink"`
}

// CreateUserRequest lets admins provision accounts, including university
// staff bound to a tenant.
type CreateUserRequest struct {
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	FullName     string  `json:"fullName" validate:"required,min=2"`
	Role         string  `json:"role" validate:"required,oneof=ADMIN AGENT STUDENT UNIVERSITY"`
	UniversityID *string `json:"universityId,omitempty" validate:"omitempty,uuid4"`
}

// UpdateUserRequest patches account fields.
type UpdateUserRequest struct {
	FullName *string `json:"fullName,omitempty" validate:"omitempty,min=2"`
	Active   *bool   `json:"active,omitempty"`
}
