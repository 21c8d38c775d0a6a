package domain

import "fmt"

// ContentType identifies the kind of teaching material a generation request
// produces. The set is closed: every value carries its own structural prompt
// template, and prompt construction switches over the enumeration exhaustively.
type ContentType string

// The full enumeration of generatable content types. Values are stored as-is
// in the database and exchanged with clients, so they must remain stable.
const (
	ContentLezione                   ContentType = "LEZIONE"
	ContentVerificaScritta           ContentType = "VERIFICA_SCRITTA"
	ContentEsercizioRispostaMultipla ContentType = "ESERCIZIO_RISPOSTA_MULTIPLA"
	ContentEsercizioRispostaAperta   ContentType = "ESERCIZIO_RISPOSTA_APERTA"
	ContentEsercitazioneLaboratorio  ContentType = "ESERCITAZIONE_LABORATORIO"
	ContentCompitoInClasse           ContentType = "COMPITO_IN_CLASSE"
	ContentApprofondimento           ContentType = "APPROFONDIMENTO"
	ContentEsercizioGuidato          ContentType = "ESERCIZIO_GUIDATO"
	ContentMappaConcettuale          ContentType = "MAPPA_CONCETTUALE"
)

// ContentTypes lists every valid content type in presentation order.
var ContentTypes = []ContentType{
	ContentLezione,
	ContentVerificaScritta,
	ContentEsercizioRispostaMultipla,
	ContentEsercizioRispostaAperta,
	ContentEsercitazioneLaboratorio,
	ContentCompitoInClasse,
	ContentApprofondimento,
	ContentEsercizioGuidato,
	ContentMappaConcettuale,
}

// contentTypeLabels maps each content type to its Italian display name,
// used both in the UI and inside generation prompts.
var contentTypeLabels = map[ContentType]string{
	ContentLezione:                   "Lezione",
	ContentVerificaScritta:           "Verifica scritta",
	ContentEsercizioRispostaMultipla: "Esercizio (risposta multipla)",
	ContentEsercizioRispostaAperta:   "Esercizio (risposta aperta)",
	ContentEsercitazioneLaboratorio:  "Esercitazione di laboratorio",
	ContentCompitoInClasse:           "Compito in classe",
	ContentApprofondimento:           "Approfondimento",
	ContentEsercizioGuidato:          "Esercizio guidato",
	ContentMappaConcettuale:          "Mappa concettuale",
}

// Label returns the Italian display name for the content type.
func (ct ContentType) Label() string {
	if label, ok := contentTypeLabels[ct]; ok {
		return label
	}
	return string(ct)
}

// Valid reports whether ct is a member of the closed enumeration.
func (ct ContentType) Valid() bool {
	_, ok := contentTypeLabels[ct]
	return ok
}

// ParseContentType converts a raw string into a ContentType,
// rejecting values outside the enumeration.
func ParseContentType(raw string) (ContentType, error) {
	ct := ContentType(raw)
	if !ct.Valid() {
		return "", fmt.Errorf("unknown content type %q", raw)
	}
	return ct, nil
}
