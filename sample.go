package mqmon

// Sample is one retained sensor reading.
//
// Its JSON form is the element type of GET /data:
//
//	{"time": "12:00:01", "mq_raw": 0.42}
type Sample struct {
	// Time is the display label, either supplied by the device or the
	// server's UTC HH:MM:SS at ingestion.
	Time string `json:"time"`

	// Value is the raw sensor reading.
	Value float64 `json:"mq_raw"`
}
