package lifecycle

// Apply returns the snapshot as it looks after every non-Copy action in plan
// has succeeded. Copies target another catalog and are ignored here.
func Apply(artifacts []Artifact, plan []Action) []Artifact {
	state := make(map[string]Artifact, len(artifacts))
	for _, a := range artifacts {
		state[a.ID] = a
	}
	deleted := make(map[string]bool)

	for _, kind := range Phases {
		for _, act := range plan {
			if act.Kind != kind {
				continue
			}
			a, ok := state[act.ArtifactID]
			if !ok {
				continue
			}
			switch kind {
			case Promote:
				a = a.withStatus(Published)
			case Retire:
				a = a.withStatus(Retired)
			case Delete:
				deleted[a.ID] = true
			}
			state[a.ID] = a
		}
	}

	out := make([]Artifact, 0, len(artifacts))
	for _, a := range artifacts {
		if deleted[a.ID] {
			continue
		}
		out = append(out, state[a.ID])
	}
	return out
}

func (a Artifact) withStatus(s Status) Artifact {
	a.Status = s
	a.Notes = a.Notes.WithStatus(s)
	return a
}
