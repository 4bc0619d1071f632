package importer_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	enc "github.com/MrJamesThe3rd/studiobooks/internal/encoding"
	"github.com/MrJamesThe3rd/studiobooks/internal/importer"
	"github.com/MrJamesThe3rd/studiobooks/internal/ledger"
)

func TestParser_Contas(t *testing.T) {
	csv := `Controle financeiro 2024;;;
Estúdio Luz;;;

Vencimento;Descrição;Valor;Situação
05/03/2024;Aluguel estúdio;1.800,00;Pago
10/03/2024;Contador;-450,00;FATURADO
20/04/2024;Seguro equipamento;320,50;
;Total;2.570,50;
`

	res, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, "contas", res.Profile)
	assert.Equal(t, enc.UTF8, res.Charset)
	require.Len(t, res.Rows, 3)

	assert.Equal(t, ledger.ImportRow{
		Description: "Aluguel estúdio",
		Amount:      180000,
		DueDate:     ledger.Date(2024, 3, 5),
		Status:      ledger.StatusPaid,
	}, res.Rows[0])

	assert.Equal(t, int64(45000), res.Rows[1].Amount)
	assert.Equal(t, ledger.StatusBilled, res.Rows[1].Status)

	assert.Equal(t, int64(32050), res.Rows[2].Amount)
	assert.Empty(t, res.Rows[2].Status)
}

func TestParser_AppExportWindows1252(t *testing.T) {
	csv := "Data de vencimento;Descrição;Valor (R$);Status\n" +
		"15/05/2024;Impressão álbum;R$ 640,00;Agendado\n" +
		"15/06/2024;Impressão álbum;R$ 640,00;Cancelada\n"

	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(csv))
	require.NoError(t, err)

	res, err := importer.NewParser().Parse(bytes.NewReader(encoded))
	require.NoError(t, err)

	assert.Equal(t, "app", res.Profile)
	assert.NotEqual(t, enc.UTF8, res.Charset)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Impressão álbum", res.Rows[0].Description)
	assert.Equal(t, int64(64000), res.Rows[0].Amount)
	assert.Equal(t, ledger.StatusScheduled, res.Rows[0].Status)
	assert.Equal(t, ledger.StatusCancelled, res.Rows[1].Status)
}

func TestParser_CommaSeparated(t *testing.T) {
	csv := "Data,Descrição,Valor\n2024-07-01,Energia,\"210,99\"\n2024-07-02,Sem valor,\n"

	res, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, "simples", res.Profile)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(21099), res.Rows[0].Amount)
	assert.Equal(t, ledger.Date(2024, 7, 1), res.Rows[0].DueDate)
}

func TestParser_Errors(t *testing.T) {
	type testCase struct {
		name    string
		csv     string
		wantErr string
	}

	tests := []testCase{
		{
			name:    "UnknownFormat",
			csv:     "Data mov.;Montante\n01-01-2026;10,00\n",
			wantErr: importer.ErrUnknownFormat.Error(),
		},
		{
			name:    "UnknownStatus",
			csv:     "Vencimento;Descrição;Valor;Situação\n05/03/2024;Aluguel;100,00;Estornado\n",
			wantErr: "row 2",
		},
		{
			name:    "MissingDescription",
			csv:     "Vencimento;Descrição;Valor;Situação\n05/03/2024;Aluguel;100,00;Pago\n06/03/2024;;50,00;Pago\n",
			wantErr: "row 3: missing description",
		},
		{
			name:    "BadAmount",
			csv:     "Vencimento;Descrição;Valor;Situação\n05/03/2024;Aluguel;cem reais;Pago\n",
			wantErr: "row 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := importer.NewParser().Parse(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
