package admin

// AgentConfig is the agent record served by the admin UI.
type AgentConfig struct {
	Name                  string `json:"name"`
	Slug                  string `json:"slug"`
	SystemInstructions    string `json:"systemInstructions"`
	SICustomerName        string `json:"siCustomerName"`
	SIEndpointURL         string `json:"siEndpointUrl"`
	SIAuthHeader          string `json:"siAuthHeader"`
	SIPayloadTemplate     any    `json:"siPayloadTemplate"`
	WaybeoEndpointURL     string `json:"waybeoEndpointUrl"`
	WaybeoAuthHeader      string `json:"waybeoAuthHeader"`
	WaybeoPayloadTemplate any    `json:"waybeoPayloadTemplate"`
}

// Knowledge is the set of human corrections for an agent.
type Knowledge struct {
	TotalCount     int                     `json:"totalCount"`
	GroupedByField map[string][]Correction `json:"groupedByField"`
}

// Correction is one human-labelled fix of a captured value.
type Correction struct {
	OriginalValue    string `json:"originalValue"`
	CorrectedValue   string `json:"correctedValue"`
	CorrectionReason string `json:"correctionReason"`
	UserUtterance    string `json:"userUtterance"`
	LabeledAt        string `json:"labeledAt"`
}

type ingestResult struct {
	CallSessionID string `json:"callSessionId"`
}
