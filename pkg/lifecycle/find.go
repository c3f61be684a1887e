package lifecycle

// FindPublished returns the newest published artifact in the group named key.
func FindPublished(artifacts []Artifact, policy RetentionPolicy, key string) (Artifact, bool) {
	p := policy.normalized()
	for _, a := range groupArtifacts(artifacts, p.GroupBy)[key] {
		if a.Status == Published {
			return a, true
		}
	}
	return Artifact{}, false
}
