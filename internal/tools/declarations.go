package tools

import "mavoice/internal/live"

var (
	declSearchMemory = live.FunctionDeclaration{
		Name:        "search_memory",
		Description: "Search the user's long-term memory notes by keywords. Returns up to five matching notes.",
		Parameters: objectSchema(map[string]any{
			"query": stringParam("Keywords to search for."),
		}, "query"),
	}
	declRemember = live.FunctionDeclaration{
		Name:        "remember",
		Description: "Save a note to the user's long-term memory.",
		Parameters: objectSchema(map[string]any{
			"title":   stringParam("Short title of the note."),
			"content": stringParam("The note text."),
		}, "title", "content"),
	}
	declRunCommand = live.FunctionDeclaration{
		Name:        "run_command",
		Description: "Run a shell command on the user's machine and return its exit code and output.",
		Parameters: objectSchema(map[string]any{
			"command": stringParam("The bash command line to execute."),
		}, "command"),
	}
	declAskClaude = live.FunctionDeclaration{
		Name:        "ask_claude",
		Description: "Delegate a complex task to the Claude command line agent and return its answer.",
		Parameters: objectSchema(map[string]any{
			"task": stringParam("A complete description of the task."),
		}, "task"),
	}
)
