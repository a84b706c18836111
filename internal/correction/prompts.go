package correction

import "fmt"

const technicalPrompt = `Eres un editor profesional y corrector de estilo. Tu tarea es hacer una corrección técnica del texto que sigue.
- Corrige solo errores de gramática, ortografía y puntuación.
- En los diálogos usa siempre la raya (—) en lugar del guion corto (-).
- NO cambies el estilo, la estructura de las frases ni la elección de palabras salvo que sean gramaticalmente incorrectas.
- Conserva sin cambios la voz y el tono del autor.
Devuelve únicamente el texto corregido, sin comentarios, explicaciones ni preámbulos.`

const stylePrompt = `Eres un editor literario experto y coach de escritura. Tu tarea es corregir el texto que sigue y mejorar su estilo.
1. **Corrección técnica:** corrige todos los errores de gramática, ortografía y puntuación. En los diálogos usa siempre la raya (—) en lugar del guion corto (-).
2. **Mejora de estilo:** ajusta la estructura de las frases para ganar fluidez e impacto. Sustituye palabras repetidas o débiles por alternativas más precisas y evocadoras. Cuida que el ritmo encaje con el contenido.
3. **Voz del autor:** haz estas mejoras manteniendo el tono, la voz y la intención originales. No añadas ideas nuevas ni elimines pasajes importantes.
El objetivo es pulir el texto para que sea claro, conciso, atractivo y profesional.
Devuelve únicamente el texto final, sin comentarios, explicaciones ni preámbulos.`

const (
	textStart = "---INICIO DEL TEXTO---"
	textEnd   = "---FIN DEL TEXTO---"
)

// systemPrompt picks the instructions for the requested kind of correction
func systemPrompt(improveStyle bool) string {
	if improveStyle {
		return stylePrompt
	}
	return technicalPrompt
}

// buildPrompt wraps the chapter text in delimiters
func buildPrompt(text string) string {
	return fmt.Sprintf("%s\n\n%s\n\n%s", textStart, text, textEnd)
}

// temperature is higher when the model is allowed to rewrite
func temperature(improveStyle bool) float64 {
	if improveStyle {
		return 0.5
	}
	return 0.2
}
