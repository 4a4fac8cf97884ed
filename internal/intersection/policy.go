package intersection

// Policy decides whether a vehicle approaching from one direction may cross
// towards another. It is called with the intersection lock held and must not
// block or call back into the Intersection.
type Policy func(from, to Direction) bool

// AlwaysAdmit admits every signaled vehicle. It does not separate conflicting
// movements; substitute a Policy that does when crossing paths must exclude
// each other.
func AlwaysAdmit(from, to Direction) bool {
	return true
}
