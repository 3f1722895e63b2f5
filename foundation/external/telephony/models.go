package telephony

type commandData struct {
	Command Command `json:"command"`
	CallID  string  `json:"callId"`
}

type fallbackData struct {
	Event Command `json:"event"`
	UCID  string  `json:"ucid"`
}
