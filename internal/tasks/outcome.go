package tasks

import "fmt"

// User-visible messages. Details go to the log, never to the page.
const (
	MessageCallbackFailed = "An error occurred while creating your playlist. Please try again."
	MessageCreateFailed   = "Failed to create playlist. Please try again."
	MessageInProgress     = "Your playlist is already being created."
)

// Kind tags an [Outcome].
type Kind int

const (
	// Redirect sends the browser to RedirectURL (the playlist, or Spotify's authorize page).
	Redirect Kind = iota
	// Reauthorizing abandons the flow silently in favour of a fresh authorization at RedirectURL.
	Reauthorizing
	// Failed renders Message.
	Failed
	// Duplicate is a repeated callback delivery; RedirectURL replays the first delivery's target when known.
	Duplicate
)

func (k Kind) String() string {
	switch k {
	case Redirect:
		return "redirect"
	case Reauthorizing:
		return "reauthorizing"
	case Failed:
		return "failed"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of a flow.
type Outcome struct {
	Kind        Kind
	Step        Step
	RedirectURL string
	Message     string
	Err         error
}

func (o Outcome) String() string {
	switch o.Kind {
	case Failed:
		return fmt.Sprintf("%s at %s: %v", o.Kind, o.Step, o.Err)
	default:
		return fmt.Sprintf("%s at %s", o.Kind, o.Step)
	}
}

// Succeeded reports whether the flow ended without a failure.
func (o Outcome) Succeeded() bool {
	return o.Kind != Failed
}

func redirectTo(step Step, url string) Outcome {
	return Outcome{Kind: Redirect, Step: step, RedirectURL: url}
}

func reauthorizing(url string) Outcome {
	return Outcome{Kind: Reauthorizing, Step: StepIdentify, RedirectURL: url}
}

func failed(step Step, err error, message string) Outcome {
	return Outcome{Kind: Failed, Step: step, Err: err, Message: message}
}

// duplicateOf replays prior for a repeated delivery.
func duplicateOf(prior Outcome) Outcome {
	out := Outcome{Kind: Duplicate, Step: prior.Step, Message: prior.Message}
	if prior.Kind == Redirect || prior.Kind == Reauthorizing {
		out.RedirectURL = prior.RedirectURL
	}
	if prior.Kind == Failed {
		out.Message = MessageCallbackFailed
	}
	return out
}
