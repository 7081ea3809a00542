package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// PortfolioChangedData contains data for PortfolioChanged events
type PortfolioChangedData struct {
	Action    string  `json:"action"` // buy, sell, import, set_cash, record_loss, delete, restore
	HoldingID string  `json:"holding_id,omitempty"`
	Symbol    string  `json:"symbol,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Holdings  int     `json:"holdings"`
}

// EventType returns the event type for PortfolioChangedData
func (d *PortfolioChangedData) EventType() EventType {
	return PortfolioChanged
}

// PricesRefreshedData contains data for PricesRefreshed events
type PricesRefreshedData struct {
	Requested int `json:"requested"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
}

// EventType returns the event type for PricesRefreshedData
func (d *PricesRefreshedData) EventType() EventType {
	return PricesRefreshed
}

// StrategyUpdatedData contains data for StrategyUpdated events
type StrategyUpdatedData struct {
	MaxDeviation float64            `json:"max_deviation"`
	Allocations  map[string]float64 `json:"allocations"`
}

// EventType returns the event type for StrategyUpdatedData
func (d *StrategyUpdatedData) EventType() EventType {
	return StrategyUpdated
}

// SettlementConfigUpdatedData contains data for SettlementConfigUpdated events
type SettlementConfigUpdatedData struct {
	ProfitThreshold1   float64 `json:"profit_threshold_1"`
	ProfitThreshold2   float64 `json:"profit_threshold_2"`
	SharingRate1       float64 `json:"sharing_rate_1"`
	SharingRate2       float64 `json:"sharing_rate_2"`
	GuaranteeThreshold float64 `json:"guarantee_threshold"`
}

// EventType returns the event type for SettlementConfigUpdatedData
func (d *SettlementConfigUpdatedData) EventType() EventType {
	return SettlementConfigUpdated
}

// BackupCompletedData contains data for BackupCompleted events
type BackupCompletedData struct {
	Key       string `json:"key"`
	SizeBytes int64  `json:"size_bytes"`
}

// EventType returns the event type for BackupCompletedData
func (d *BackupCompletedData) EventType() EventType {
	return BackupCompleted
}

// SystemStatusChangedData contains data for SystemStatusChanged events
type SystemStatusChangedData struct {
	Healthy       bool    `json:"healthy"`
	Reason        string  `json:"reason,omitempty"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
}

// EventType returns the event type for SystemStatusChangedData
func (d *SystemStatusChangedData) EventType() EventType {
	return SystemStatusChanged
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
