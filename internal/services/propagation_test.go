package services

import (
	"context"
	"testing"

	"github.com/yungbote/enroltrack-backend/internal/types"
)

func TestPropagation_MandatoryAndElectiveThreshold(t *testing.T) {
	env := newTestEnv(t)
	rd := learnerData()
	ctx := ctxFor(rd)

	parent := env.makeLO(t, rd.PortalID, types.LoTypeCourse, func(lo *types.LearningObject) {
		lo.ElectiveNumber = 1
	})
	a := env.makeLO(t, rd.PortalID, types.LoTypeLearningItem, nil)
	b := env.makeLO(t, rd.PortalID, types.LoTypeLearningItem, nil)
	x := env.makeLO(t, rd.PortalID, types.LoTypeLearningItem, nil)
	y := env.makeLO(t, rd.PortalID, types.LoTypeLearningItem, nil)
	env.linkLO(t, parent.ID, a.ID, 1, false)
	env.linkLO(t, parent.ID, b.ID, 2, false)
	env.linkLO(t, parent.ID, x.ID, 3, true)
	env.linkLO(t, parent.ID, y.ID, 4, true)

	root := mustCreate(t, env, ctx, CreateInput{LoID: parent.ID})
	enrolA := mustCreate(t, env, ctx, CreateInput{LoID: a.ID, ParentEnrolmentID: root.ID})
	enrolB := mustCreate(t, env, ctx, CreateInput{LoID: b.ID, ParentEnrolmentID: root.ID})
	enrolX := mustCreate(t, env, ctx, CreateInput{LoID: x.ID, ParentEnrolmentID: root.ID})

	mustComplete(t, env, ctx, enrolA.ID)
	if got := env.reload(t, root.ID).Status; got != types.StatusInProgress {
		t.Fatalf("after one mandatory child: parent = %s, want in_progress", got)
	}

	mustComplete(t, env, ctx, enrolB.ID)
	if got := env.reload(t, root.ID).Status; got != types.StatusInProgress {
		t.Fatalf("elective threshold unmet: parent = %s, want in_progress", got)
	}

	mustComplete(t, env, ctx, enrolX.ID)
	reloaded := env.reload(t, root.ID)
	if reloaded.Status != types.StatusCompleted {
		t.Fatalf("all mandatory plus one elective done: parent = %s, want completed", reloaded.Status)
	}
	if reloaded.EndDate == nil {
		t.Fatalf("completed parent should carry an end date")
	}
}

func TestPropagation_UnenrolledMandatoryChildBlocksCompletion(t *testing.T) {
	env := newTestEnv(t)
	rd := learnerData()
	ctx := ctxFor(rd)

	course := env.makeLO(t, rd.PortalID, types.LoTypeCourse, nil)
	mod1 := env.makeLO(t, rd.PortalID, types.LoTypeModule, nil)
	mod2 := env.makeLO(t, rd.PortalID, types.LoTypeModule, nil)
	env.linkLO(t, course.ID, mod1.ID, 1, false)
	env.linkLO(t, course.ID, mod2.ID, 2, false)

	root := mustCreate(t, env, ctx, CreateInput{LoID: course.ID})
	enrol1 := mustCreate(t, env, ctx, CreateInput{LoID: mod1.ID, ParentEnrolmentID: root.ID})

	// The second module exists only in the catalog; completing the first
	// must not complete the course.
	mustComplete(t, env, ctx, enrol1.ID)
	if got := env.reload(t, root.ID).Status; got != types.StatusInProgress {
		t.Fatalf("course with an unenrolled mandatory module = %s, want in_progress", got)
	}

	enrol2 := mustCreate(t, env, ctx, CreateInput{LoID: mod2.ID, ParentEnrolmentID: root.ID})
	mustComplete(t, env, ctx, enrol2.ID)
	if got := env.reload(t, root.ID).Status; got != types.StatusCompleted {
		t.Fatalf("course after both modules completed = %s, want completed", got)
	}
}

func TestPropagation_UnpublishedChildExcluded(t *testing.T) {
	env := newTestEnv(t)
	rd := learnerData()
	ctx := ctxFor(rd)

	parent := env.makeLO(t, rd.PortalID, types.LoTypeModule, nil)
	a := env.makeLO(t, rd.PortalID, types.LoTypeLearningItem, nil)
	b := env.makeLO(t, rd.PortalID, types.LoTypeLearningItem, nil)
	env.linkLO(t, parent.ID, a.ID, 1, false)
	env.linkLO(t, parent.ID, b.ID, 2, false)

	root := mustCreate(t, env, ctx, CreateInput{LoID: parent.ID})
	enrolA := mustCreate(t, env, ctx, CreateInput{LoID: a.ID, ParentEnrolmentID: root.ID})
	mustCreate(t, env, ctx, CreateInput{LoID: b.ID, ParentEnrolmentID: root.ID})

	if err := env.db.Model(&types.LearningObject{}).Where("id = ?", b.ID).Update("published", false).Error; err != nil {
		t.Fatalf("unpublish lo: %v", err)
	}

	mustComplete(t, env, ctx, enrolA.ID)
	if got := env.reload(t, root.ID).Status; got != types.StatusCompleted {
		t.Fatalf("retired sibling should not block completion: parent = %s", got)
	}
}

func TestPropagation_MultiLevelCascade(t *testing.T) {
	env := newTestEnv(t)
	rd := learnerData()
	ctx := ctxFor(rd)

	course := env.makeLO(t, rd.PortalID, types.LoTypeCourse, nil)
	module := env.makeLO(t, rd.PortalID, types.LoTypeModule, nil)
	item := env.makeLO(t, rd.PortalID, types.LoTypeLearningItem, nil)
	env.linkLO(t, course.ID, module.ID, 1, false)
	env.linkLO(t, module.ID, item.ID, 1, false)

	root := mustCreate(t, env, ctx, CreateInput{LoID: course.ID})
	mid := mustCreate(t, env, ctx, CreateInput{LoID: module.ID, ParentEnrolmentID: root.ID})
	leaf := mustCreate(t, env, ctx, CreateInput{LoID: item.ID, ParentEnrolmentID: mid.ID})

	env.pub.reset()
	mustComplete(t, env, ctx, leaf.ID)

	if got := env.reload(t, mid.ID).Status; got != types.StatusCompleted {
		t.Fatalf("module = %s, want completed", got)
	}
	if got := env.reload(t, root.ID).Status; got != types.StatusCompleted {
		t.Fatalf("course = %s, want completed", got)
	}
	if got := len(env.pub.byType(EventEnrolmentUpdated)); got != 3 {
		t.Fatalf("expected 3 updated events (leaf, module, course), got %d", got)
	}
}

func TestPropagation_IdempotentOnUnchangedTree(t *testing.T) {
	env := newTestEnv(t)
	rd := learnerData()
	ctx := ctxFor(rd)

	parent := env.makeLO(t, rd.PortalID, types.LoTypeModule, nil)
	item := env.makeLO(t, rd.PortalID, types.LoTypeLearningItem, nil)
	env.linkLO(t, parent.ID, item.ID, 1, false)

	root := mustCreate(t, env, ctx, CreateInput{LoID: parent.ID})
	leaf := mustCreate(t, env, ctx, CreateInput{LoID: item.ID, ParentEnrolmentID: root.ID})
	mustComplete(t, env, ctx, leaf.ID)

	events, err := env.propagation.OnStatusChanged(context.Background(), nil, env.reload(t, leaf.ID), rd.UserID)
	if err != nil {
		t.Fatalf("rerun propagation: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("rerun on an unchanged tree should write nothing, got %d events", len(events))
	}
}

func TestPropagation_CompletedAncestorNeverRegresses(t *testing.T) {
	env := newTestEnv(t)
	rd := learnerData()
	rd.IsManager = true
	ctx := ctxFor(rd)

	parent := env.makeLO(t, rd.PortalID, types.LoTypeModule, nil)
	item := env.makeLO(t, rd.PortalID, types.LoTypeLearningItem, nil)
	env.linkLO(t, parent.ID, item.ID, 1, false)

	root := mustCreate(t, env, ctx, CreateInput{LoID: parent.ID})
	leaf := mustCreate(t, env, ctx, CreateInput{LoID: item.ID, ParentEnrolmentID: root.ID})
	mustComplete(t, env, ctx, leaf.ID)

	inProgress := types.StatusInProgress
	if _, err := env.svc.Update(ctx, UpdateInput{EnrolmentID: leaf.ID, Status: &inProgress}); err != nil {
		t.Fatalf("privileged regression of leaf: %v", err)
	}
	if got := env.reload(t, root.ID).Status; got != types.StatusCompleted {
		t.Fatalf("parent regressed to %s by propagation", got)
	}
}

func TestPropagation_DerivesPassWhenParentRequiresIt(t *testing.T) {
	env := newTestEnv(t)
	rd := learnerData()
	ctx := ctxFor(rd)

	parent := env.makeLO(t, rd.PortalID, types.LoTypeModule, func(lo *types.LearningObject) {
		lo.PassRequired = true
	})
	item := env.makeLO(t, rd.PortalID, types.LoTypeLearningItem, nil)
	env.linkLO(t, parent.ID, item.ID, 1, false)

	root := mustCreate(t, env, ctx, CreateInput{LoID: parent.ID})
	leaf := mustCreate(t, env, ctx, CreateInput{LoID: item.ID, ParentEnrolmentID: root.ID})
	mustComplete(t, env, ctx, leaf.ID)

	reloaded := env.reload(t, root.ID)
	if reloaded.Status != types.StatusCompleted {
		t.Fatalf("parent = %s, want completed", reloaded.Status)
	}
	if reloaded.Pass != types.PassPassed {
		t.Fatalf("pass-required parent completed with pass=%q, want passed", reloaded.Pass)
	}
}

func TestPropagation_RecordsHistoryOnAncestor(t *testing.T) {
	env := newTestEnv(t)
	rd := learnerData()
	ctx := ctxFor(rd)

	parent := env.makeLO(t, rd.PortalID, types.LoTypeModule, nil)
	item := env.makeLO(t, rd.PortalID, types.LoTypeLearningItem, nil)
	env.linkLO(t, parent.ID, item.ID, 1, false)

	root := mustCreate(t, env, ctx, CreateInput{LoID: parent.ID})
	leaf := mustCreate(t, env, ctx, CreateInput{LoID: item.ID, ParentEnrolmentID: root.ID})
	mustComplete(t, env, ctx, leaf.ID)

	entries := types.History(env.reload(t, root.ID).Data)
	var sawPropagated bool
	for _, entry := range entries {
		if entry.Note == "propagated" && entry.ToStatus == types.StatusCompleted {
			sawPropagated = true
		}
	}
	if !sawPropagated {
		t.Fatalf("expected a propagated history entry on the ancestor, got %+v", entries)
	}
}
