package application

import (
	"fmt"
	"strings"

	"github.com/lectiolab/lectio/internal/domain"
)

// DocumentExcerptBudget caps how many characters of a source document are
// embedded in a prompt. The excerpt is truncated, never summarized.
const DocumentExcerptBudget = 8000

// PromptInput carries everything prompt construction needs. All fields
// except ContentType, Title, and DisciplineName are optional context.
type PromptInput struct {
	ContentType     domain.ContentType
	Title           string
	Description     string
	DisciplineName  string
	ModuleContext   string
	DocumentExcerpt string
}

// BuildPrompt maps a generation request to the provider-agnostic prompt:
// role framing, optional context blocks, the per-type structural guidance,
// and the strict JSON-only output contract. It is a pure function and total
// over the content-type enumeration.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b,
		"Sei un esperto docente italiano di %s. Genera un contenuto di tipo %q sull'argomento: %q.",
		in.DisciplineName, in.ContentType.Label(), in.Title)

	if in.Description != "" {
		fmt.Fprintf(&b, "\n\nDescrizione/istruzioni aggiuntive: %s", in.Description)
	}
	if in.ModuleContext != "" {
		fmt.Fprintf(&b, "\n\nContesto del modulo: %s", in.ModuleContext)
	}
	if in.DocumentExcerpt != "" {
		fmt.Fprintf(&b, "\n\nDocumento di riferimento (usa come base per il contenuto):\n%s",
			truncateRunes(in.DocumentExcerpt, DocumentExcerptBudget))
	}

	fmt.Fprintf(&b, "\n\n%s\n\n%s", sectionGuidance(in.ContentType), outputContract(in.ContentType))

	return b.String()
}

// sectionGuidance returns the structural instructions for the content type.
// The switch is exhaustive over the enumeration; adding a ContentType
// without a case here panics at first use rather than emitting a structure-
// free prompt.
func sectionGuidance(ct domain.ContentType) string {
	switch ct {
	case domain.ContentLezione:
		return `Struttura la lezione con le seguenti sezioni:
- introduction: introduzione all'argomento
- explanation: spiegazione dettagliata dei concetti chiave (puoi usare più sezioni explanation)
- example: esempi pratici
- exercise: esercizi per verificare la comprensione
- summary: riepilogo dei punti principali`

	case domain.ContentVerificaScritta:
		return `Struttura la verifica scritta con:
- introduction: intestazione con istruzioni per lo studente, tempo a disposizione, punteggio
- exercise: domande/esercizi della verifica (usa più sezioni exercise, numerate)
- summary: griglia di valutazione e soluzioni`

	case domain.ContentEsercizioRispostaMultipla:
		return `Struttura l'esercizio a risposta multipla con:
- introduction: istruzioni per lo studente
- exercise: domande con 4 opzioni di risposta ciascuna (usa più sezioni exercise). Indica la risposta corretta tra le opzioni.
- summary: soluzioni con spiegazioni`

	case domain.ContentEsercizioRispostaAperta:
		return `Struttura l'esercizio a risposta aperta con:
- introduction: istruzioni per lo studente
- exercise: domande aperte con spazio per la risposta (usa più sezioni exercise)
- summary: tracce di risposta e criteri di valutazione`

	case domain.ContentEsercitazioneLaboratorio:
		return `Struttura l'esercitazione di laboratorio con:
- introduction: obiettivi dell'esercitazione e materiali necessari
- explanation: fondamenti teorici
- exercise: procedura step-by-step dell'esercitazione
- summary: domande di riflessione e relazione finale`

	case domain.ContentCompitoInClasse:
		return `Struttura il compito in classe con:
- introduction: intestazione con istruzioni, tempo, punteggio per esercizio
- exercise: esercizi/problemi del compito (usa più sezioni exercise, con difficoltà crescente)
- summary: griglia di valutazione e soluzioni`

	case domain.ContentApprofondimento:
		return `Struttura l'approfondimento con:
- introduction: contesto e motivazione dell'approfondimento
- explanation: trattazione approfondita dell'argomento
- deepening: aspetti avanzati, collegamenti interdisciplinari
- example: casi studio o esempi concreti
- summary: conclusioni e spunti per ulteriori ricerche`

	case domain.ContentEsercizioGuidato:
		return `Struttura l'esercizio guidato con:
- introduction: presentazione del problema e obiettivi
- explanation: richiamo dei concetti necessari
- example: svolgimento guidato passo passo con spiegazione di ogni passaggio
- exercise: esercizi analoghi da svolgere in autonomia
- summary: errori comuni e punti di attenzione`

	case domain.ContentMappaConcettuale:
		return `Struttura la mappa concettuale con:
- introduction: presentazione dell'argomento e chiave di lettura della mappa
- summary: sintesi dei concetti rappresentati
Inoltre popola il campo "mindMap": un albero di nodi (root con children annidati) dove ogni nodo ha id univoco in kebab-case, label breve, description di una riga ed explanation estesa; usa "crossLinks" per i collegamenti tra rami diversi.`

	default:
		panic(fmt.Sprintf("no section guidance for content type %q", ct))
	}
}

func outputContract(ct domain.ContentType) string {
	contract := `Rispondi SOLO con un JSON valido nel seguente formato, senza markdown o altro testo:
{
  "sections": [
    {
      "id": "stringa-unica",
      "type": "introduction|explanation|example|exercise|summary|deepening",
      "title": "Titolo sezione",
      "content": "Contenuto della sezione in markdown",
      "order": 0
    }
  ],
  "objectives": ["Obiettivo 1", "Obiettivo 2"],
  "prerequisites": ["Prerequisito 1"],
  "estimatedDuration": 60,
  "targetGrade": "Classe target (es. 3a superiore)",
  "keywords": ["parola1", "parola2"]`

	if ct == domain.ContentMappaConcettuale {
		contract += `,
  "mindMap": {
    "root": {
      "id": "radice",
      "label": "Concetto centrale",
      "description": "Descrizione breve",
      "explanation": "Spiegazione estesa",
      "children": []
    },
    "crossLinks": [{ "fromId": "nodo-a", "toId": "nodo-b", "label": "relazione" }]
  }`
	}

	contract += `
}

Regole:
- Rispondi SOLO con JSON puro, senza code fences o altro testo
- Contenuto sezioni in markdown
- Id sezione unico in kebab-case (es. "intro-1", "exercise-2")
- Ordine sezioni da 0
- estimatedDuration in minuti
- Contenuto adatto a un contesto scolastico italiano
- Sii completo ma conciso: evita ripetizioni e frasi di riempimento, vai dritto ai concetti`

	return contract
}

// BuildProgramPrompt asks for the module/topic structure of a raw syllabus
// text. Like BuildPrompt it demands bare JSON, no prose.
func BuildProgramPrompt(disciplineName, rawContent string) string {
	var b strings.Builder

	fmt.Fprintf(&b,
		"Sei un esperto di didattica scolastica italiana. Analizza il seguente programma di disciplina %q e estrai la struttura in moduli e argomenti.",
		disciplineName)
	fmt.Fprintf(&b, "\n\nPROGRAMMA:\n%s", rawContent)

	b.WriteString(`

Rispondi SOLO con un JSON valido nel seguente formato, senza markdown o altro testo:
{
  "modules": [
    {
      "name": "Nome del modulo",
      "description": "Breve descrizione opzionale",
      "topics": [
        {
          "title": "Titolo dell'argomento",
          "description": "Breve descrizione opzionale"
        }
      ]
    }
  ]
}

Regole:
- Ogni modulo deve avere almeno un argomento
- I titoli devono essere concisi ma descrittivi
- Mantieni l'ordine logico del programma originale
- Se il testo non contiene una struttura chiara, cerca di organizzarlo in moduli tematici`)

	return b.String()
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
