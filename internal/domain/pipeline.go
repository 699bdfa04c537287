package domain

// Well-known stage ids. The seven default stages are seeded on first
// run and can never be deleted; custom stages may be added after them.
const (
	StageNew         = "nuevo"
	StageContacted   = "contactado"
	StageQualified   = "calificado"
	StageProposal    = "propuesta"
	StageNegotiation = "negociacion"
	StageWon         = "cerrado_ganado"
	StageLost        = "cerrado_perdido"
)

// Stage is one named, ordered, colored column of the lead pipeline.
// Order values define a total ordering starting at 1.
type Stage struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Color     string `json:"color"`
	Order     int    `json:"order"`
	IsDefault bool   `json:"is_default"`
}

// DefaultStages returns the seed configuration, in fixed order.
// Callers own the returned slice.
func DefaultStages() []Stage {
	return []Stage{
		{ID: StageNew, Title: "Nuevo", Color: "#3b82f6", Order: 1, IsDefault: true},
		{ID: StageContacted, Title: "Contactado", Color: "#8b5cf6", Order: 2, IsDefault: true},
		{ID: StageQualified, Title: "Calificado", Color: "#06b6d4", Order: 3, IsDefault: true},
		{ID: StageProposal, Title: "Propuesta", Color: "#f59e0b", Order: 4, IsDefault: true},
		{ID: StageNegotiation, Title: "Negociación", Color: "#f97316", Order: 5, IsDefault: true},
		{ID: StageWon, Title: "Cerrado Ganado", Color: "#22c55e", Order: 6, IsDefault: true},
		{ID: StageLost, Title: "Cerrado Perdido", Color: "#ef4444", Order: 7, IsDefault: true},
	}
}

// StageBucket is one pipeline column together with its leads and the
// derived total value of those leads.
type StageBucket struct {
	Stage      Stage   `json:"stage"`
	Leads      []Lead  `json:"leads"`
	TotalValue float64 `json:"total_value"`
}

// Board is the full kanban view: ordered buckets plus aggregates
// computed live from bucket contents.
type Board struct {
	Buckets        []StageBucket `json:"buckets"`
	TotalLeads     int           `json:"total_leads"`
	OrphanedLeads  int           `json:"orphaned_leads"`
	ConversionRate float64       `json:"conversion_rate"`
}
