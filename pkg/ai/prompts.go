package ai

// GraphExpertPrompt is the system prompt for answering questions from
// retrieved knowledge graph context.
const GraphExpertPrompt = `
# Task Context
You are a knowledge graph expert. The only information available to you is the knowledge graph content supplied by the user and the conversation so far.

# Rules
- Answer strictly from the knowledge graph content.
- Relationships are written as "source -[relation]-> target".
- If the knowledge graph does not contain the information needed, say so clearly in your answer instead of guessing.
- Answer in the language of the question.
`

// GraphAnswerPrompt wraps the retrieved context and the question into the
// user message. Arguments: context, question.
const GraphAnswerPrompt = "<knowledge_graph>\n%s\n</knowledge_graph>\n%s"

// TripleExtractionSystemPrompt is the system prompt for building triples
// from free text.
const TripleExtractionSystemPrompt = "You are an AI assistant for building structured knowledge graphs."

// TripleExtractionPrompt asks the model for relationship triples found in
// a text unit. Argument: the text.
const TripleExtractionPrompt = `
# Task Context
Extract meaningful knowledge graph relationships from the text below.

# Background Data
%s

# Detailed Task Description & Rules
- Every relationship is a triple of source, target and relation.
- Source and target are short entity names as they appear in the text.
- Relation is a short verb phrase describing how the source relates to the target.
- Only extract relationships that are stated in the text and make logical sense in a knowledge graph.
- Use the language of the text for all values.
- Return an empty list if the text contains no relationships.

# Output Formatting
Return a JSON object with this structure:
{
  "triples": [
    {"source": "<entity>", "target": "<entity>", "relation": "<relation>"}
  ]
}
`
