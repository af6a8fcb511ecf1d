package tasks

// Step identifies where in a flow an outcome was decided.
type Step int

const (
	StepCallback Step = iota
	StepAuthorize
	StepExchange
	StepPersist
	StepResolve
	StepIdentify
	StepCreatePlaylist
	StepAddTracks
	StepRedirect
)

func (s Step) String() string {
	switch s {
	case StepCallback:
		return "callback"
	case StepAuthorize:
		return "authorize"
	case StepExchange:
		return "exchange"
	case StepPersist:
		return "persist"
	case StepResolve:
		return "resolve"
	case StepIdentify:
		return "identify"
	case StepCreatePlaylist:
		return "create_playlist"
	case StepAddTracks:
		return "add_tracks"
	case StepRedirect:
		return "redirect"
	default:
		return ""
	}
}
