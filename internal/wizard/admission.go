package wizard

// AdmissionSteps is the applicant profile flow. Personal, address and contact
// details are collected on the same page, so a path lookup for
// /profile/personal always lands on "personal" and the progress bar does not
// move across those three sections.
func AdmissionSteps() []Step {
	return []Step{
		{ID: "personal", Path: "/profile/personal", Title: "Personal Details"},
		{ID: "address", Path: "/profile/personal", Title: "Address Details"},
		{ID: "contact", Path: "/profile/personal", Title: "Contact Details"},
		{ID: "qualification", Path: "/profile/qualification", Title: "Qualification Details"},
		{ID: "reservation", Path: "/profile/reservation", Title: "Reservation Details"},
		{ID: "photo", Path: "/profile/photo", Title: "Photo & Signature"},
		{ID: "documents", Path: "/profile/documents", Title: "Document Upload"},
		{ID: "bank", Path: "/profile/bank", Title: "Bank Details"},
		{ID: "declaration", Path: "/profile/declaration", Title: "Declaration"},
		{ID: "summary", Path: "/profile/summary", Title: "Profile Summary"},
		{ID: "payment", Path: "/profile/payment", Title: "Payment"},
		{ID: "success", Path: "/profile/success", Title: "Success"},
	}
}

// AdmissionRegistry builds the registry for AdmissionSteps.
func AdmissionRegistry() *Registry {
	return MustRegistry(AdmissionSteps()...)
}
