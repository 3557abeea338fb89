package plan

type PlanResponse struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Price           string `json:"price"`
	AdmissionFee    string `json:"admission_fee"`
	AdmissionWaived bool   `json:"admission_waived"`
	DurationMonths  int    `json:"duration_months"`
	Payable         string `json:"payable"`
}

type PlansResponse struct {
	Plans []PlanResponse `json:"plans"`
}
