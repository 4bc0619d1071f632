package importer

// Profile describes the column layout of one spreadsheet format. Supporting a
// new layout is adding a Profile to profiles.
type Profile struct {
	Name      string
	DateCol   string
	DescCol   string
	AmountCol string
	StatusCol string // optional
}

func (p Profile) requiredCols() []string {
	cols := []string{p.DateCol, p.DescCol, p.AmountCol}
	if p.StatusCol != "" {
		cols = append(cols, p.StatusCol)
	}

	return cols
}

// profiles is tried in order; more specific layouts come first.
var profiles = []Profile{
	{
		Name:      "app",
		DateCol:   "Data de vencimento",
		DescCol:   "Descrição",
		AmountCol: "Valor (R$)",
		StatusCol: "Status",
	},
	{
		Name:      "contas",
		DateCol:   "Vencimento",
		DescCol:   "Descrição",
		AmountCol: "Valor",
		StatusCol: "Situação",
	},
	{
		Name:      "simples",
		DateCol:   "Data",
		DescCol:   "Descrição",
		AmountCol: "Valor",
	},
}
