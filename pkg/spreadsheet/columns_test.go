package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "RUT CONTRATANTE", NormalizeHeader("Rut_Contratante"))
	assert.Equal(t, "NUMERO POLIZA", NormalizeHeader("  Número_Póliza "))
	assert.Equal(t, "PRIMA NETA", NormalizeHeader("prima   neta"))
}

func TestMapColumnsExact(t *testing.T) {
	header := []string{"RUT", "NOMBRE CLIENTE", "NUMERO POLIZA", "VIGENCIA", "PRIMA NETA"}
	mapped := MapColumns(header)

	assert.Equal(t, 0, mapped[ColRUT])
	assert.Equal(t, 1, mapped[ColClientName])
	assert.Equal(t, 2, mapped[ColPolicyNum])
	assert.Equal(t, 3, mapped[ColVigencia])
	assert.Equal(t, 4, mapped[ColNetPremium])
	assert.Empty(t, MissingColumns(mapped))
}

func TestMapColumnsAccentsAndUnderscores(t *testing.T) {
	header := []string{"Rut_Contratante", "Nombre_Asegurado", "Número_de_Póliza", "Fecha_Vigencia", "Prima_Neta_UF"}
	mapped := MapColumns(header)

	assert.Empty(t, MissingColumns(mapped))
	assert.Equal(t, 0, mapped[ColRUT])
	assert.Equal(t, 2, mapped[ColPolicyNum])
}

func TestMapColumnsLegacyDocumentNumber(t *testing.T) {
	header := []string{"RUT", "NOMBRE CLIENTE", "NUMERO DOCUMENTO", "VIGENCIA", "PRIMA NETA"}
	mapped := MapColumns(header)

	idx, ok := mapped[ColPolicyNum]
	assert.True(t, ok, "NUMERO DOCUMENTO should map to the policy number column")
	assert.Equal(t, 2, idx)
}

func TestMissingColumns(t *testing.T) {
	header := []string{"RUT", "VIGENCIA"}
	mapped := MapColumns(header)
	missing := MissingColumns(mapped)

	assert.Contains(t, missing, ColClientName)
	assert.Contains(t, missing, ColPolicyNum)
	assert.Contains(t, missing, ColNetPremium)
	assert.NotContains(t, missing, ColRUT)
	assert.NotContains(t, missing, ColVigencia)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, similarity("RUT", "RUT"))
	assert.Greater(t, similarity("PRIMA NETA", "PRIMA NETA UF"), SimilarityThreshold)
	assert.Less(t, similarity("RUT", "VIGENCIA"), SimilarityThreshold)
}
