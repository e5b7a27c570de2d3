package generation

// StructuredQuery holds the fields extracted from a raw natural-language
// claim query. Pointer fields distinguish "absent" from zero values; a
// field the model could not find stays nil.
type StructuredQuery struct {
	Age                  *int    `json:"age"`
	Gender               *string `json:"gender"`
	MedicalProcedure     *string `json:"medical_procedure"`
	Location             *string `json:"location"`
	PolicyDurationMonths *int    `json:"policy_duration_months"`
}

// Source is a retrieved chunk cited in support of a decision.
type Source struct {
	Chunk      string  `json:"chunk"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// FinalResponse is the structured claim decision returned to the caller.
// Amount is a pointer so "no amount" serializes as null rather than "".
type FinalResponse struct {
	Decision      string   `json:"decision"`
	Amount        *string  `json:"amount"`
	Justification string   `json:"justification"`
	Sources       []Source `json:"sources"`
}
