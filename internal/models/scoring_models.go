package models

// DataType тип проверяемых данных
type DataType string

const (
	DataTypeEmail       DataType = "email"
	DataTypeSMS         DataType = "sms"
	DataTypePhone       DataType = "phone"
	DataTypeTransaction DataType = "transaction"
)

func (d DataType) IsValid() bool {
	switch d {
	case DataTypeEmail, DataTypeSMS, DataTypePhone, DataTypeTransaction:
		return true
	}
	return false
}

// FraudCheckRequest запрос на прямую проверку текста
type FraudCheckRequest struct {
	DataType DataType `json:"data_type"`
	Content  string   `json:"content"`
}

// FraudCheckResponse результат проверки на мошенничество
type FraudCheckResponse struct {
	IsFraud     bool     `json:"is_fraud"`
	Score       float64  `json:"confidence_score"`
	Indicators  []string `json:"fraud_indicators"`
	Explanation string   `json:"explanation"`
	Severity    string   `json:"severity"`
	RequestID   string   `json:"request_id"`
}
