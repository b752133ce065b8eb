package joint

import "testing"

func TestMappingRoundTrip(t *testing.T) {
	for _, r := range Roles() {
		if got := FromNative(r.Native()); got != r {
			t.Errorf("round trip for %v: got %v", r, got)
		}
	}
}

func TestMappingInjective(t *testing.T) {
	seen := make(map[NativeID]Role)
	for _, r := range Roles() {
		id := r.Native()
		if prev, ok := seen[id]; ok {
			t.Errorf("native id %d mapped by both %v and %v", id, prev, r)
		}
		seen[id] = r
	}
	if len(seen) != NativeCount {
		t.Errorf("expected %d distinct native ids, got %d", NativeCount, len(seen))
	}
}

func TestRolesExcludesManual(t *testing.T) {
	roles := Roles()
	if len(roles) != Count {
		t.Fatalf("expected %d roles, got %d", Count, len(roles))
	}
	for i, r := range roles {
		if r == Manual {
			t.Fatal("Roles() must not include the Manual sentinel")
		}
		if int(r) != i {
			t.Errorf("role order broken at index %d: got %v", i, r)
		}
	}
}

func TestManualNativePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for Manual.Native()")
		}
	}()
	Manual.Native()
}

func TestRoleString(t *testing.T) {
	cases := map[Role]string{
		Head:         "head",
		SpineWaist:   "spine_waist",
		FootTipRight: "foot_tip_right",
		Manual:       "manual",
		Role(99):     "unknown",
	}
	for r, want := range cases {
		if got := r.String(); got != want {
			t.Errorf("Role(%d).String() = %q, want %q", int(r), got, want)
		}
	}
}
