package store

import (
	"errors"
	"testing"

	"questboard/internal/database"
	"questboard/internal/model"
	"questboard/internal/task"
)

func setupInstanceTestDB(t *testing.T) (*InstanceStore, *TemplateStore, *KidStore, *LedgerStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewInstanceStore(db), NewTemplateStore(db), NewKidStore(db), NewLedgerStore(db)
}

func mustKid(t *testing.T, ks *KidStore, name string) *model.Kid {
	t.Helper()
	kid, err := ks.Create(name, "")
	if err != nil {
		t.Fatalf("create kid: %v", err)
	}
	return kid
}

func mustTemplate(t *testing.T, ts *TemplateStore, title string, points int) *model.TaskTemplate {
	t.Helper()
	tpl, err := ts.Create(title, points, "", 0)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	return tpl
}

func TestCreateFromTemplateClaimsTemplate(t *testing.T) {
	is, ts, ks, _ := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)

	inst, err := is.CreateFromTemplate(tpl.ID, kid.ID)
	if err != nil {
		t.Fatalf("create from template: %v", err)
	}
	if inst.Status != string(task.StatusDoing) {
		t.Errorf("status = %q, want %q", inst.Status, task.StatusDoing)
	}
	if inst.PointsAwarded != 7 {
		t.Errorf("points_awarded = %d, want 7", inst.PointsAwarded)
	}
	if inst.AssignedKidID != kid.ID {
		t.Errorf("assigned_kid_id = %d, want %d", inst.AssignedKidID, kid.ID)
	}

	got, err := ts.GetByID(tpl.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if got.Available {
		t.Error("template should be unavailable after instantiation")
	}
}

func TestCreateFromTemplateUnavailable(t *testing.T) {
	is, ts, ks, _ := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	other := mustKid(t, ks, "Ben")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)

	if _, err := is.CreateFromTemplate(tpl.ID, kid.ID); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := is.CreateFromTemplate(tpl.ID, other.ID)
	if !errors.Is(err, task.ErrTemplateUnavailable) {
		t.Errorf("err = %v, want ErrTemplateUnavailable", err)
	}
}

func TestCreateFromTemplateMissing(t *testing.T) {
	is, ts, ks, _ := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)

	if _, err := is.CreateFromTemplate(9999, kid.ID); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("missing template: err = %v, want ErrNotFound", err)
	}
	if _, err := is.CreateFromTemplate(tpl.ID, 9999); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("missing kid: err = %v, want ErrNotFound", err)
	}
}

func TestMoveTransitionTable(t *testing.T) {
	is, ts, ks, _ := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)
	inst, err := is.CreateFromTemplate(tpl.ID, kid.ID)
	if err != nil {
		t.Fatalf("create from template: %v", err)
	}

	// doing -> review
	if err := is.Move(inst.ID, task.StatusReview); err != nil {
		t.Fatalf("move to review: %v", err)
	}
	got, _ := is.GetByID(inst.ID)
	if got.Status != string(task.StatusReview) {
		t.Errorf("status = %q, want review", got.Status)
	}

	// review -> doing
	if err := is.Move(inst.ID, task.StatusDoing); err != nil {
		t.Fatalf("move back to doing: %v", err)
	}

	// doing -> done is not a legal move; done is reached via Approve
	err = is.Move(inst.ID, task.StatusDone)
	var ite *task.IllegalTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("err = %v, want IllegalTransitionError", err)
	}
	if ite.From != task.StatusDoing || ite.To != task.StatusDone {
		t.Errorf("transition = %s->%s, want doing->done", ite.From, ite.To)
	}

	// done is terminal for Move
	if err := is.Move(inst.ID, task.StatusReview); err != nil {
		t.Fatalf("move to review: %v", err)
	}
	if err := is.Approve(inst.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := is.Move(inst.ID, task.StatusDoing); !errors.As(err, &ite) {
		t.Errorf("move out of done: err = %v, want IllegalTransitionError", err)
	}
}

func TestMoveMissing(t *testing.T) {
	is, _, _, _ := setupInstanceTestDB(t)
	if err := is.Move(9999, task.StatusReview); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateDetails(t *testing.T) {
	is, ts, ks, _ := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)
	inst, _ := is.CreateFromTemplate(tpl.ID, kid.ID)

	if err := is.UpdateDetails(inst.ID, "swept under the mat too"); err != nil {
		t.Fatalf("update details: %v", err)
	}
	got, _ := is.GetByID(inst.ID)
	if got.Details != "swept under the mat too" {
		t.Errorf("details = %q", got.Details)
	}
}

func TestUpdateDetailsTruncates(t *testing.T) {
	is, ts, ks, _ := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)
	inst, _ := is.CreateFromTemplate(tpl.ID, kid.ID)

	long := make([]byte, task.MaxDetailsLen+200)
	for i := range long {
		long[i] = 'x'
	}
	if err := is.UpdateDetails(inst.ID, string(long)); err != nil {
		t.Fatalf("update details: %v", err)
	}
	got, _ := is.GetByID(inst.ID)
	if len(got.Details) != task.MaxDetailsLen {
		t.Errorf("details length = %d, want %d", len(got.Details), task.MaxDetailsLen)
	}
}

func TestUpdateDetailsImmutableWhenDone(t *testing.T) {
	is, ts, ks, _ := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)
	inst, _ := is.CreateFromTemplate(tpl.ID, kid.ID)

	if err := is.Move(inst.ID, task.StatusReview); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := is.Approve(inst.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	err := is.UpdateDetails(inst.ID, "too late")
	if !errors.Is(err, task.ErrInstanceImmutable) {
		t.Errorf("err = %v, want ErrInstanceImmutable", err)
	}
	if err := is.UpdateDetails(9999, "nope"); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestApproveFinalizesAndReoffersTemplate(t *testing.T) {
	is, ts, ks, ls := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)
	inst, _ := is.CreateFromTemplate(tpl.ID, kid.ID)

	if err := is.Move(inst.ID, task.StatusReview); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := is.Approve(inst.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	got, _ := is.GetByID(inst.ID)
	if got.Status != string(task.StatusDone) {
		t.Errorf("status = %q, want done", got.Status)
	}
	if got.ApprovedAt == nil {
		t.Error("approved_at should be set")
	}

	reoffered, _ := ts.GetByID(tpl.ID)
	if !reoffered.Available {
		t.Error("template should be available again after approval")
	}

	// Approval alone never credits points.
	balance, err := ls.Balance(kid.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0 before collection", balance)
	}
}

func TestApproveRequiresReview(t *testing.T) {
	is, ts, ks, _ := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)
	inst, _ := is.CreateFromTemplate(tpl.ID, kid.ID)

	if err := is.Approve(inst.ID); !errors.Is(err, task.ErrNotInReview) {
		t.Errorf("approve from doing: err = %v, want ErrNotInReview", err)
	}
	if err := is.Approve(9999); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReject(t *testing.T) {
	is, ts, ks, _ := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)
	inst, _ := is.CreateFromTemplate(tpl.ID, kid.ID)

	if err := is.Reject(inst.ID); !errors.Is(err, task.ErrNotInReview) {
		t.Errorf("reject from doing: err = %v, want ErrNotInReview", err)
	}

	if err := is.Move(inst.ID, task.StatusReview); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := is.Reject(inst.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, _ := is.GetByID(inst.ID)
	if got.Status != string(task.StatusDoing) {
		t.Errorf("status = %q, want doing after reject", got.Status)
	}
}

func TestCollectAwardsPointsExactlyOnce(t *testing.T) {
	is, ts, ks, ls := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)
	inst, _ := is.CreateFromTemplate(tpl.ID, kid.ID)

	if err := is.Move(inst.ID, task.StatusReview); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := is.Approve(inst.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := is.Collect(inst.ID); err != nil {
		t.Fatalf("collect: %v", err)
	}
	// Double submit is a quiet success, not a second award.
	if err := is.Collect(inst.ID); err != nil {
		t.Fatalf("second collect: %v", err)
	}

	count, err := ls.CountByInstance(inst.ID, task.ReasonTaskApproved)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("award entries = %d, want exactly 1", count)
	}

	balance, _ := ls.Balance(kid.ID)
	if balance != 7 {
		t.Errorf("balance = %d, want 7", balance)
	}

	got, _ := is.GetByID(inst.ID)
	if !got.Archived {
		t.Error("instance should be archived after collection")
	}

	entries, err := ls.ListByKid(kid.ID)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Note != "Collected: Sweep porch" {
		t.Errorf("note = %q", entries[0].Note)
	}
}

func TestCollectRequiresDone(t *testing.T) {
	is, ts, ks, _ := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)
	inst, _ := is.CreateFromTemplate(tpl.ID, kid.ID)

	if err := is.Collect(inst.ID); !errors.Is(err, task.ErrNotCollectible) {
		t.Errorf("collect from doing: err = %v, want ErrNotCollectible", err)
	}
	if err := is.Collect(9999); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesLedgerEntries(t *testing.T) {
	is, ts, ks, ls := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")
	tpl := mustTemplate(t, ts, "Sweep porch", 7)
	inst, _ := is.CreateFromTemplate(tpl.ID, kid.ID)

	if err := is.Move(inst.ID, task.StatusReview); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := is.Approve(inst.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := is.Collect(inst.ID); err != nil {
		t.Fatalf("collect: %v", err)
	}

	if err := is.Delete(inst.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := is.GetByID(inst.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("instance should be gone")
	}
	count, _ := ls.CountByInstance(inst.ID, task.ReasonTaskApproved)
	if count != 0 {
		t.Errorf("orphaned ledger entries = %d, want 0", count)
	}

	if err := is.Delete(9999); !errors.Is(err, task.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSetColumnOrder(t *testing.T) {
	is, ts, ks, _ := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")

	var ids []int64
	for _, title := range []string{"First", "Second", "Third"} {
		tpl := mustTemplate(t, ts, title, 5)
		inst, err := is.CreateFromTemplate(tpl.ID, kid.ID)
		if err != nil {
			t.Fatalf("create from template: %v", err)
		}
		ids = append(ids, inst.ID)
	}

	// Reverse the lane.
	if err := is.SetColumnOrder(task.StatusDoing, []int64{ids[2], ids[1], ids[0]}, &kid.ID); err != nil {
		t.Fatalf("set column order: %v", err)
	}

	lane, err := is.ListLane(task.StatusDoing, kid.ID)
	if err != nil {
		t.Fatalf("list lane: %v", err)
	}
	if len(lane) != 3 {
		t.Fatalf("lane size = %d, want 3", len(lane))
	}
	want := []int64{ids[2], ids[1], ids[0]}
	for i, inst := range lane {
		if inst.ID != want[i] {
			t.Errorf("lane[%d].ID = %d, want %d", i, inst.ID, want[i])
		}
	}

	// Ids in another lane are skipped, not moved.
	if err := is.Move(ids[0], task.StatusReview); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := is.SetColumnOrder(task.StatusDoing, []int64{ids[0]}, &kid.ID); err != nil {
		t.Fatalf("set column order: %v", err)
	}
	got, _ := is.GetByID(ids[0])
	if got.Status != string(task.StatusReview) {
		t.Errorf("status = %q, want review", got.Status)
	}

	// Empty list is a no-op.
	if err := is.SetColumnOrder(task.StatusDoing, nil, nil); err != nil {
		t.Fatalf("empty reorder: %v", err)
	}
}

func TestListDoneAndArchived(t *testing.T) {
	is, ts, ks, _ := setupInstanceTestDB(t)
	kid := mustKid(t, ks, "Ada")

	tplA := mustTemplate(t, ts, "Alpha", 3)
	tplB := mustTemplate(t, ts, "Beta", 4)

	instA, _ := is.CreateFromTemplate(tplA.ID, kid.ID)
	instB, _ := is.CreateFromTemplate(tplB.ID, kid.ID)
	for _, id := range []int64{instA.ID, instB.ID} {
		if err := is.Move(id, task.StatusReview); err != nil {
			t.Fatalf("move: %v", err)
		}
		if err := is.Approve(id); err != nil {
			t.Fatalf("approve: %v", err)
		}
	}

	done, err := is.ListDone(kid.ID)
	if err != nil {
		t.Fatalf("list done: %v", err)
	}
	if len(done) != 2 {
		t.Fatalf("done = %d, want 2", len(done))
	}

	if err := is.Collect(instA.ID); err != nil {
		t.Fatalf("collect: %v", err)
	}

	done, _ = is.ListDone(kid.ID)
	if len(done) != 1 || done[0].ID != instB.ID {
		t.Errorf("done lane should hold only the uncollected instance")
	}

	archived, err := is.ListArchived(&kid.ID)
	if err != nil {
		t.Fatalf("list archived: %v", err)
	}
	if len(archived) != 1 || archived[0].ID != instA.ID {
		t.Errorf("archive should hold only the collected instance")
	}

	all, err := is.ListArchived(nil)
	if err != nil {
		t.Fatalf("list archived all: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("archive all = %d, want 1", len(all))
	}
}
