package match

import (
	"context"
	"errors"
	"sort"
	"testing"

	"swipeserver/apicodes"
	"swipeserver/collections"
	"swipeserver/notify"
	testutils "swipeserver/testing"
)

type testEngine struct {
	*Engine
	db     *testutils.FakeStore
	sender *testutils.FakeSender
	events *testutils.FakeEvents
}

func newTestEngine() *testEngine {
	db := testutils.NewFakeStore()
	testutils.SeedUsers(db)
	sender := &testutils.FakeSender{}
	events := &testutils.FakeEvents{}
	return &testEngine{
		Engine: NewEngine(db, notify.NewDispatcher(sender), events, ""),
		db:     db,
		sender: sender,
		events: events,
	}
}

func (te *testEngine) user(t *testing.T, id string) *collections.UserEntry {
	t.Helper()
	u, err := te.db.User(context.Background(), id)
	if err != nil {
		t.Fatalf("User(%s) gave error: %v", id, err)
	}
	return u
}

func count(list []string, id string) int {
	n := 0
	for _, v := range list {
		if v == id {
			n++
		}
	}
	return n
}

func TestConversationID(t *testing.T) {
	cases := []struct {
		a, b, prefix string
		expected     string
	}{
		{a: "user1", b: "user3", expected: "_user1_user3"},
		{a: "user3", b: "user1", expected: "_user1_user3"},
		{a: "b", b: "a", prefix: "dev", expected: "dev_a_b"},
	}
	for _, tc := range cases {
		if actual := ConversationID(tc.a, tc.b, tc.prefix); actual != tc.expected {
			t.Errorf("ConversationID(%q, %q, %q) = %q, want %q", tc.a, tc.b, tc.prefix, actual, tc.expected)
		}
	}
}

func TestSwipeNoMatch(t *testing.T) {
	te := newTestEngine()
	result, err := te.Swipe(context.Background(), "user_3", "user_2")
	if err != nil {
		t.Fatalf("Swipe gave error: %v when not expecting one.", err)
	}
	if result.Match || result.Notified != nil {
		t.Errorf("Swipe gave %+v, want no match", result)
	}
	user3 := te.user(t, "user_3")
	if len(user3.LikedUsers) != 1 || !user3.LikedUsers["user_2"] {
		t.Errorf("user_3 liked_users = %v, want {user_2: true}", user3.LikedUsers)
	}
	if len(te.sender.Sent()) != 0 || len(te.events.Events()) != 0 {
		t.Error("a one-sided like notified someone")
	}
}

func TestSwipeIdempotent(t *testing.T) {
	te := newTestEngine()
	for i := 0; i < 2; i++ {
		if _, err := te.Swipe(context.Background(), "user_3", "user_2"); err != nil {
			t.Fatalf("Swipe #%d gave error: %v", i, err)
		}
	}
	user3 := te.user(t, "user_3")
	if len(user3.LikedUsers) != 1 || user3.LikedUsers["user_2"] != true {
		t.Errorf("user_3 liked_users = %v after two swipes", user3.LikedUsers)
	}
}

func TestSwipeMutualMatch(t *testing.T) {
	te := newTestEngine()
	ctx := context.Background()
	// user_1 already likes user_3.
	u1 := te.user(t, "user_1")
	u1.LikedUsers["user_3"] = true
	te.db.Put(u1)

	result, err := te.Swipe(ctx, "user_3", "user_1")
	if err != nil {
		t.Fatalf("Swipe gave error: %v when not expecting one.", err)
	}
	if !result.Match || result.ConversationID != "_user_1_user_3" {
		t.Errorf("Swipe gave %+v, want a match in _user_1_user_3", result)
	}
	if result.Notified == nil || !*result.Notified || result.NotifyError != "" {
		t.Errorf("Swipe gave notified=%v notifyError=%q", result.Notified, result.NotifyError)
	}

	for _, pair := range [][2]string{{"user_1", "user_3"}, {"user_3", "user_1"}} {
		u := te.user(t, pair[0])
		if count(u.MatchedUsers, pair[1]) != 1 {
			t.Errorf("%s matched_users = %v, want %s exactly once", pair[0], u.MatchedUsers, pair[1])
		}
	}
	convo, ok := te.db.Conversation("_user_1_user_3")
	if !ok {
		t.Fatal("conversation _user_1_user_3 was not created")
	}
	if len(convo.Participants) != 2 || convo.Participants[0] != "user_1" || convo.Participants[1] != "user_3" {
		t.Errorf("participants = %v", convo.Participants)
	}

	sent := te.sender.Sent()
	if len(sent) != 1 || sent[0].Token != "token_1" || sent[0].Title != "It's a match!" {
		t.Fatalf("sent notifications = %+v, want one match notification to token_1", sent)
	}
	if sent[0].Data[notify.DataTypeKey] != notify.DataTypeMatch || sent[0].Data["matchID"] != "user_3" {
		t.Errorf("notification data = %v", sent[0].Data)
	}
	events := te.events.Events()
	if len(events) != 1 || events[0].ConversationID != "_user_1_user_3" {
		t.Errorf("events = %+v", events)
	}

	// Swiping again keeps the match without duplicating it or notifying twice.
	again, err := te.Swipe(ctx, "user_3", "user_1")
	if err != nil || !again.Match {
		t.Fatalf("second Swipe gave %+v, %v", again, err)
	}
	if count(te.user(t, "user_1").MatchedUsers, "user_3") != 1 {
		t.Error("second swipe duplicated the match")
	}
	if len(te.sender.Sent()) != 1 {
		t.Error("second swipe notified again")
	}
}

func TestSwipeBothOrders(t *testing.T) {
	te := newTestEngine()
	ctx := context.Background()
	if r, _ := te.Swipe(ctx, "user_2", "user_3"); r.Match {
		t.Fatal("first like matched")
	}
	r, err := te.Swipe(ctx, "user_3", "user_2")
	if err != nil || !r.Match {
		t.Fatalf("second like gave %+v, %v", r, err)
	}
	if !te.user(t, "user_2").MatchedWith("user_3") || !te.user(t, "user_3").MatchedWith("user_2") {
		t.Error("matched_users is not symmetric")
	}
	if _, ok := te.db.Conversation(ConversationID("user_2", "user_3", "")); !ok {
		t.Error("conversation was not created")
	}
}

func TestSwipeNotificationFailureKeepsMatch(t *testing.T) {
	te := newTestEngine()
	te.sender.Err = errors.New("DeviceNotRegistered")
	u1 := te.user(t, "user_1")
	u1.LikedUsers["user_3"] = true
	te.db.Put(u1)

	result, err := te.Swipe(context.Background(), "user_3", "user_1")
	if err != nil {
		t.Fatalf("Swipe gave error: %v when not expecting one.", err)
	}
	if !result.Match || result.Notified == nil || *result.Notified || result.NotifyError == "" {
		t.Errorf("Swipe gave %+v, want a match with a reported notification failure", result)
	}
	if !te.user(t, "user_3").MatchedWith("user_1") {
		t.Error("notification failure undid the match")
	}
}

func TestSwipeWithoutToken(t *testing.T) {
	te := newTestEngine()
	u1 := te.user(t, "user_1")
	u1.LikedUsers["user_3"] = true
	u1.NotificationToken = ""
	te.db.Put(u1)

	result, err := te.Swipe(context.Background(), "user_3", "user_1")
	if err != nil {
		t.Fatalf("Swipe gave error: %v when not expecting one.", err)
	}
	if result.Notified == nil || *result.Notified || result.NotifyError != "" {
		t.Errorf("Swipe gave %+v, want notified=false without an error", result)
	}
}

func TestSwipeErrors(t *testing.T) {
	cases := []struct {
		name     string
		userID   string
		targetID string
		wantKind apicodes.Kind
		wantMsg  string
	}{
		{name: "missing target", userID: "user_1", wantKind: apicodes.BadRequest, wantMsg: apicodes.MsgSwipedRequired},
		{name: "self swipe", userID: "user_1", targetID: "user_1", wantKind: apicodes.BadRequest, wantMsg: apicodes.MsgSelfSwipe},
		// user_1 and user_2 are already matched; self swipes stay rejected.
		{name: "self swipe of matched user", userID: "user_2", targetID: "user_2", wantKind: apicodes.BadRequest, wantMsg: apicodes.MsgSelfSwipe},
		{name: "unknown target", userID: "user_1", targetID: "ghost", wantKind: apicodes.NotFound, wantMsg: apicodes.MsgUserNotFound},
		{name: "unknown caller", userID: "ghost", targetID: "user_1", wantKind: apicodes.NotFound, wantMsg: apicodes.MsgUserNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			te := newTestEngine()
			_, err := te.Swipe(context.Background(), tc.userID, tc.targetID)
			testutils.AssertKind(t, err, tc.wantKind)
			if apiErr := apicodes.As(err); apiErr == nil || apiErr.Message != tc.wantMsg {
				t.Errorf("Swipe gave %v, want message %q", err, tc.wantMsg)
			}
		})
	}

	te := newTestEngine()
	te.db.Errs["CommitLike"] = testutils.ErrStore
	_, err := te.Swipe(context.Background(), "user_3", "user_2")
	testutils.AssertKind(t, err, apicodes.Internal)
}

func TestMatches(t *testing.T) {
	te := newTestEngine()
	ctx := context.Background()

	matches, err := te.Matches(ctx, "user_1")
	if err != nil {
		t.Fatalf("Matches gave error: %v when not expecting one.", err)
	}
	if len(matches) != 1 || matches[0].ID != "user_2" || matches[0].Settings.FirstName != "Bob" {
		t.Errorf("Matches gave %+v", matches)
	}

	// A matched user whose document is gone is skipped.
	u1 := te.user(t, "user_1")
	u1.MatchedUsers = append(u1.MatchedUsers, "deleted_user")
	te.db.Put(u1)
	if matches, _ := te.Matches(ctx, "user_1"); len(matches) != 1 {
		t.Errorf("Matches gave %d entries, want the deleted user skipped", len(matches))
	}

	empty, err := te.Matches(ctx, "user_3")
	if err != nil || len(empty) != 0 {
		t.Errorf("Matches(user_3) gave %v, %v", empty, err)
	}

	_, err = te.Matches(ctx, "ghost")
	testutils.AssertKind(t, err, apicodes.NotFound)
}

func ids(candidates []collections.Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.ID)
	}
	sort.Strings(out)
	return out
}

func TestSuggested(t *testing.T) {
	cases := []struct {
		name     string
		userID   string
		body     map[string]interface{}
		expected []string
	}{
		{name: "no filter", userID: "user_3", expected: []string{"user_1", "user_2"}},
		{name: "liked and matched are excluded", userID: "user_1", expected: []string{"user_3"}},
		{name: "single tag", userID: "user_3", body: map[string]interface{}{"careerPath": "Software Engineer"}, expected: []string{"user_1"}},
		{
			name:     "tags are ANDed",
			userID:   "user_3",
			body:     map[string]interface{}{"careerPath": "Software Engineer", "interestedIndustries": []interface{}{"Tech"}},
			expected: []string{"user_1"},
		},
		{
			name:     "nobody matches",
			userID:   "user_3",
			body:     map[string]interface{}{"hobbies": []interface{}{"Baking"}, "interestedIndustries": []interface{}{"RocketScience"}},
			expected: []string{},
		},
		{name: "list overlap", userID: "user_3", body: map[string]interface{}{"hobbies": []interface{}{"Gaming", "Baking"}}, expected: []string{"user_2"}},
		{name: "grad year as string", userID: "user_3", body: map[string]interface{}{"gradYear": "2024"}, expected: []string{"user_2"}},
		{name: "empty values", userID: "user_3", body: map[string]interface{}{"major": "", "hobbies": []interface{}{}}, expected: []string{"user_1", "user_2"}},
		{name: "caller without document", userID: "newcomer", expected: []string{"user_1", "user_2", "user_3"}},
		{name: "career path as list", userID: "user_3", body: map[string]interface{}{"careerPath": []interface{}{"Software Engineer"}}, expected: []string{"user_1"}},
		{
			name:     "career path any of",
			userID:   "user_3",
			body:     map[string]interface{}{"careerPath": []interface{}{"Software Engineer", "Mechanical Engineer"}},
			expected: []string{"user_1", "user_2"},
		},
		{name: "blank list entries", userID: "user_3", body: map[string]interface{}{"hobbies": "", "orgs": []interface{}{" "}}, expected: []string{"user_1", "user_2"}},
		{
			name:   "unset app filters",
			userID: "user_3",
			body: map[string]interface{}{
				"major": "", "gradYear": nil, "ethnicity": "", "gender": "",
				"hobbies": []interface{}{}, "orgs": []interface{}{}, "careerPath": []interface{}{},
				"interestedIndustries": []interface{}{}, "mentorshipAreas": []interface{}{}, "userType": "",
			},
			expected: []string{"user_1", "user_2"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			te := newTestEngine()
			filter, err := DecodeFilter(tc.body)
			if err != nil {
				t.Fatalf("DecodeFilter gave error: %v when not expecting one.", err)
			}
			users, err := te.Suggested(context.Background(), tc.userID, filter)
			if err != nil {
				t.Fatalf("Suggested gave error: %v when not expecting one.", err)
			}
			actual := ids(users)
			if len(actual) != len(tc.expected) {
				t.Fatalf("Suggested gave %v, want %v", actual, tc.expected)
			}
			for i := range actual {
				if actual[i] != tc.expected[i] {
					t.Errorf("Suggested gave %v, want %v", actual, tc.expected)
					break
				}
			}
		})
	}
}

func TestDecodeFilterRejectsGarbage(t *testing.T) {
	_, err := DecodeFilter(map[string]interface{}{"gradYear": "soon"})
	testutils.AssertKind(t, err, apicodes.BadRequest)
}
