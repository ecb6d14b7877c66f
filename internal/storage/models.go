package storage

type Profile struct {
	ID           int64
	Username     string
	CountryCode  string
	CurrencyCode string
	Theme        string
}

type Category struct {
	ID   int64
	Name string
}

type Transaction struct {
	ID          int64
	OccurredAt  string
	Description string
	Amount      float64
	Type        string
	CategoryID  int64
}

type Budget struct {
	CategoryID  int64
	Amount      float64
	Recurrence  string
	IsCompleted int64
}

type SavingsGoal struct {
	ID            int64
	Name          string
	TargetAmount  float64
	CurrentAmount float64
	Recurrence    string
	IsCompleted   int64
}

type AssetPrice struct {
	ID        int64
	Symbol    string
	SampledAt string
	Price     float64
}
