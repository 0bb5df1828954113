package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"colonyserver/internal/config"
	"colonyserver/internal/db"
	"colonyserver/internal/engine"
	"colonyserver/internal/eventlog"
	"colonyserver/internal/migrate"
	"colonyserver/internal/repo"
)

const (
	colonyAddr  = "0xc01"
	founderAddr = "0xf00"
	aliceAddr   = "0xa11ce"
	bobAddr     = "0xb0b"
	carolAddr   = "0xca201"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default())
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func (env testEnv) exec(t *testing.T, q string, args ...any) {
	t.Helper()
	if _, err := env.Engine.DB.ExecContext(env.Ctx, q, args...); err != nil {
		t.Fatalf("exec %s: %v", q, err)
	}
}

func jsonList(items ...string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func (env testEnv) addColony(t *testing.T) {
	t.Helper()
	env.exec(t, `INSERT INTO colonies(colony_address,colony_name,founder_address,created_at) VALUES (?,?,?,?)`,
		colonyAddr, "testcolony", founderAddr, "2024-01-01T00:00:00Z")
}

func (env testEnv) addUser(t *testing.T, address, username string) {
	t.Helper()
	env.exec(t, `INSERT INTO users(wallet_address,username,colony_addresses,created_at) VALUES (?,?,?,?)`,
		address, username, jsonList(colonyAddr), "2024-01-01T00:00:00Z")
}

func (env testEnv) addTask(t *testing.T, id string, worker *string) {
	t.Helper()
	env.exec(t, `INSERT INTO tasks(id,colony_address,creator_address,assigned_worker_address,created_at) VALUES (?,?,?,?,?)`,
		id, colonyAddr, founderAddr, worker, "2024-01-01T00:00:00Z")
}

func (env testEnv) addProgram(t *testing.T, id string, levelIDs, enrolled []string) {
	t.Helper()
	env.exec(t, `INSERT INTO programs(id,colony_address,creator_address,level_ids,enrolled_user_addresses,status,created_at) VALUES (?,?,?,?,?,?,?)`,
		id, colonyAddr, founderAddr, jsonList(levelIDs...), jsonList(enrolled...), "Active", "2024-01-01T00:00:00Z")
}

func (env testEnv) addLevel(t *testing.T, id, programID string, stepIDs, completedBy []string) {
	t.Helper()
	env.exec(t, `INSERT INTO levels(id,program_id,creator_address,step_ids,completed_by,status,created_at) VALUES (?,?,?,?,?,?,?)`,
		id, programID, founderAddr, jsonList(stepIDs...), jsonList(completedBy...), "Active", "2024-01-01T00:00:00Z")
}

func (env testEnv) setCompletedBy(t *testing.T, levelID string, addresses ...string) {
	t.Helper()
	env.exec(t, `UPDATE levels SET completed_by=? WHERE id=?`, jsonList(addresses...), levelID)
}

func (env testEnv) appendEvent(t *testing.T, initiator, sourceID, sourceType string, c eventlog.Context, recipients ...string) eventlog.Event {
	t.Helper()
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback()
	ev, err := env.Engine.Events.Append(env.Ctx, tx, initiator, sourceID, sourceType, c, recipients)
	if err != nil {
		t.Fatalf("append event: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return ev
}

func notificationIDs(ns []engine.Notification) []string {
	ids := make([]string, len(ns))
	for i, n := range ns {
		ids[i] = n.ID
	}
	return ids
}

func TestNotificationFanOutPartition(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.addTask(t, "task-1", nil)

	env.appendEvent(t, founderAddr, "task-1", "task",
		eventlog.CreateTaskEvent{TaskID: "task-1", EthDomainID: 1, ColonyAddress: colonyAddr}, aliceAddr, bobAddr)
	env.appendEvent(t, founderAddr, "task-1", "task",
		eventlog.SetTaskTitleEvent{TaskID: "task-1", Title: "hello"}, bobAddr)

	alice, err := env.Engine.UserNotifications(env.Ctx, aliceAddr, nil)
	if err != nil {
		t.Fatalf("alice: %v", err)
	}
	if len(alice) != 1 {
		t.Fatalf("alice should see 1 notification, got %d", len(alice))
	}
	if alice[0].Event.Type != eventlog.TypeCreateTask {
		t.Fatalf("alice sees wrong event: %s", alice[0].Event.Type)
	}
	bob, err := env.Engine.UserNotifications(env.Ctx, bobAddr, nil)
	if err != nil {
		t.Fatalf("bob: %v", err)
	}
	if len(bob) != 2 {
		t.Fatalf("bob should see 2 notifications, got %d", len(bob))
	}
	carol, err := env.Engine.UserNotifications(env.Ctx, carolAddr, nil)
	if err != nil {
		t.Fatalf("carol: %v", err)
	}
	if len(carol) != 0 {
		t.Fatalf("carol should see none, got %d", len(carol))
	}
}

func TestNotificationOrderingNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)

	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		env.appendEvent(t, founderAddr, "task-1", "task",
			eventlog.SetTaskTitleEvent{TaskID: "task-1", Title: title}, aliceAddr)
	}

	ns, err := env.Engine.UserNotifications(env.Ctx, aliceAddr, nil)
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	if len(ns) != 3 {
		t.Fatalf("want 3 notifications, got %d", len(ns))
	}
	for i, want := range []string{"third", "second", "first"} {
		got := ns[i].Event.Context.(eventlog.SetTaskTitleEvent).Title
		if got != want {
			t.Fatalf("position %d: want %q, got %q", i, want, got)
		}
	}
	// Newly fanned-out notifications are unread.
	for _, n := range ns {
		if n.Read {
			t.Fatalf("notification %s should start unread", n.ID)
		}
	}
}

func TestNotificationReadFilter(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)

	env.appendEvent(t, founderAddr, "task-1", "task",
		eventlog.SetTaskTitleEvent{TaskID: "task-1", Title: "a"}, aliceAddr)
	env.appendEvent(t, founderAddr, "task-1", "task",
		eventlog.SetTaskTitleEvent{TaskID: "task-1", Title: "b"}, aliceAddr)

	all, err := env.Engine.UserNotifications(env.Ctx, aliceAddr, nil)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("want 2, got %d", len(all))
	}
	if err := env.Engine.MarkNotificationRead(env.Ctx, all[0].ID, aliceAddr); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	truth := true
	read, err := env.Engine.UserNotifications(env.Ctx, aliceAddr, &truth)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(read) != 1 || read[0].ID != all[0].ID {
		t.Fatalf("read filter wrong: %v", notificationIDs(read))
	}
	falsehood := false
	unread, err := env.Engine.UserNotifications(env.Ctx, aliceAddr, &falsehood)
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if len(unread) != 1 || unread[0].ID != all[1].ID {
		t.Fatalf("unread filter wrong: %v", notificationIDs(unread))
	}
	// Read and unread partition the full set.
	if len(read)+len(unread) != len(all) {
		t.Fatalf("partition broken: %d + %d != %d", len(read), len(unread), len(all))
	}
}

func TestMarkNotificationReadAuthorization(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)

	env.appendEvent(t, founderAddr, "task-1", "task",
		eventlog.SetTaskTitleEvent{TaskID: "task-1", Title: "a"}, aliceAddr)
	ns, err := env.Engine.UserNotifications(env.Ctx, aliceAddr, nil)
	if err != nil || len(ns) != 1 {
		t.Fatalf("setup: %v (%d)", err, len(ns))
	}

	// Non-recipient cannot flip someone else's notification.
	err = env.Engine.MarkNotificationRead(env.Ctx, ns[0].ID, bobAddr)
	if !errors.Is(err, repo.ErrNotRecipient) {
		t.Fatalf("want ErrNotRecipient, got %v", err)
	}
	// Unknown notification is a plain miss.
	err = env.Engine.MarkNotificationRead(env.Ctx, "no-such-id", aliceAddr)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	// Marking twice is fine.
	if err := env.Engine.MarkNotificationRead(env.Ctx, ns[0].ID, aliceAddr); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := env.Engine.MarkNotificationRead(env.Ctx, ns[0].ID, aliceAddr); err != nil {
		t.Fatalf("second mark: %v", err)
	}
	// Bob's failed attempt must not have touched Alice's row either way.
	truth := true
	read, err := env.Engine.UserNotifications(env.Ctx, aliceAddr, &truth)
	if err != nil || len(read) != 1 {
		t.Fatalf("alice read set: %v (%d)", err, len(read))
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)

	for i := 0; i < 3; i++ {
		env.appendEvent(t, founderAddr, "task-1", "task",
			eventlog.CreateWorkRequestEvent{TaskID: "task-1"}, aliceAddr)
	}
	env.appendEvent(t, founderAddr, "task-2", "task",
		eventlog.CreateWorkRequestEvent{TaskID: "task-2"}, bobAddr)

	if err := env.Engine.MarkAllNotificationsRead(env.Ctx, aliceAddr); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	falsehood := false
	unread, err := env.Engine.UserNotifications(env.Ctx, aliceAddr, &falsehood)
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("alice should have no unread, got %d", len(unread))
	}
	bobUnread, err := env.Engine.UserNotifications(env.Ctx, bobAddr, &falsehood)
	if err != nil || len(bobUnread) != 1 {
		t.Fatalf("bob's unread untouched: %v (%d)", err, len(bobUnread))
	}
	// Empty inbox is a no-op.
	if err := env.Engine.MarkAllNotificationsRead(env.Ctx, carolAddr); err != nil {
		t.Fatalf("mark all on empty inbox: %v", err)
	}
}

func TestNotificationCorruptEventFailsLoudly(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)

	ev := env.appendEvent(t, founderAddr, "task-1", "task",
		eventlog.CreateWorkRequestEvent{TaskID: "task-1"}, aliceAddr)
	// Corrupt the stored type so hydration cannot resolve the context.
	env.exec(t, `UPDATE events SET type='Bogus' WHERE id=?`, ev.ID)

	_, err := env.Engine.UserNotifications(env.Ctx, aliceAddr, nil)
	if !errors.Is(err, repo.ErrDataIntegrity) {
		t.Fatalf("want ErrDataIntegrity, got %v", err)
	}
}

func TestSubmissibleLevelsProgression(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.addProgram(t, "prog-1", []string{"lvl-1", "lvl-2", "lvl-3"}, []string{aliceAddr})
	env.addLevel(t, "lvl-1", "prog-1", nil, nil)
	env.addLevel(t, "lvl-2", "prog-1", nil, nil)
	env.addLevel(t, "lvl-3", "prog-1", nil, nil)

	check := func(want ...string) {
		t.Helper()
		got, err := env.Engine.SubmissibleLevels(env.Ctx, "prog-1", aliceAddr)
		if err != nil {
			t.Fatalf("submissible: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("want %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("want %v, got %v", want, got)
			}
		}
	}

	check("lvl-1")
	env.setCompletedBy(t, "lvl-1", aliceAddr)
	check("lvl-1", "lvl-2")
	env.setCompletedBy(t, "lvl-2", aliceAddr)
	check("lvl-1", "lvl-2", "lvl-3")
	// All levels complete: no frontier left to add.
	env.setCompletedBy(t, "lvl-3", aliceAddr)
	check("lvl-1", "lvl-2", "lvl-3")
}

func TestSubmissibleLevelsUnenrolled(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.addProgram(t, "prog-1", []string{"lvl-1"}, []string{aliceAddr})
	env.addLevel(t, "lvl-1", "prog-1", nil, nil)

	got, err := env.Engine.SubmissibleLevels(env.Ctx, "prog-1", bobAddr)
	if err != nil {
		t.Fatalf("submissible: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("unenrolled user should get empty, got %v", got)
	}
}

func TestSubmissibleLevelsCorruptState(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)

	_, err := env.Engine.SubmissibleLevels(env.Ctx, "no-such-program", aliceAddr)
	if !errors.Is(err, repo.ErrDataIntegrity) {
		t.Fatalf("missing program: want ErrDataIntegrity, got %v", err)
	}

	env.addProgram(t, "prog-empty", nil, []string{aliceAddr})
	_, err = env.Engine.SubmissibleLevels(env.Ctx, "prog-empty", aliceAddr)
	if !errors.Is(err, repo.ErrDataIntegrity) {
		t.Fatalf("empty level list: want ErrDataIntegrity, got %v", err)
	}
}

func TestLevelUnlocked(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.addProgram(t, "prog-1", []string{"lvl-1", "lvl-2"}, []string{aliceAddr})
	env.addLevel(t, "lvl-1", "prog-1", nil, nil)
	env.addLevel(t, "lvl-2", "prog-1", nil, nil)

	unlocked, err := env.Engine.LevelUnlocked(env.Ctx, "lvl-1", aliceAddr)
	if err != nil || !unlocked {
		t.Fatalf("lvl-1 should be unlocked: %v %v", unlocked, err)
	}
	unlocked, err = env.Engine.LevelUnlocked(env.Ctx, "lvl-2", aliceAddr)
	if err != nil || unlocked {
		t.Fatalf("lvl-2 should be locked: %v %v", unlocked, err)
	}
}

func TestSoftDeleteInvisibility(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.addProgram(t, "prog-1", []string{"lvl-1"}, []string{aliceAddr})
	env.addLevel(t, "lvl-1", "prog-1", []string{"step-1"}, []string{aliceAddr})
	env.exec(t, `INSERT INTO persistent_tasks(id,colony_address,creator_address,status,created_at) VALUES (?,?,?,?,?)`,
		"step-1", colonyAddr, founderAddr, "Active", "2024-01-01T00:00:00Z")
	env.exec(t, `INSERT INTO submissions(id,creator_address,persistent_task_id,submission,status,created_at) VALUES (?,?,?,?,?,?)`,
		"sub-1", aliceAddr, "step-1", "ipfs://hash", "Open", "2024-01-01T00:00:00Z")

	// Visible while live.
	if _, err := env.Engine.Repo.GetProgramByID(env.Ctx, "prog-1"); err != nil {
		t.Fatalf("live program: %v", err)
	}
	s, err := env.Engine.Repo.GetUserSubmissionForTask(env.Ctx, "step-1", aliceAddr)
	if err != nil || s == nil {
		t.Fatalf("live submission: %v %v", s, err)
	}

	env.exec(t, `UPDATE programs SET status='Deleted' WHERE id='prog-1'`)
	env.exec(t, `UPDATE levels SET status='Deleted' WHERE id='lvl-1'`)
	env.exec(t, `UPDATE submissions SET status='Deleted' WHERE id='sub-1'`)

	if _, err := env.Engine.Repo.GetProgramByID(env.Ctx, "prog-1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("deleted program should read as missing, got %v", err)
	}
	ids, err := env.Engine.Repo.CompletedLevelIDs(env.Ctx, "prog-1", aliceAddr)
	if err != nil || len(ids) != 0 {
		t.Fatalf("deleted level still counted: %v %v", ids, err)
	}
	s, err = env.Engine.Repo.GetUserSubmissionForTask(env.Ctx, "step-1", aliceAddr)
	if err != nil {
		t.Fatalf("deleted submission lookup: %v", err)
	}
	if s != nil {
		t.Fatalf("deleted submission should be invisible, got %+v", s)
	}
}

func TestUserSubmissionForTaskAbsent(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	s, err := env.Engine.Repo.GetUserSubmissionForTask(env.Ctx, "step-x", aliceAddr)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if s != nil {
		t.Fatalf("want nil for absent submission, got %+v", s)
	}
}

func TestProgramSubmissionsMultiStep(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.addProgram(t, "prog-1", []string{"lvl-1", "lvl-2"}, []string{aliceAddr, bobAddr})
	env.addLevel(t, "lvl-1", "prog-1", []string{"step-1"}, nil)
	env.addLevel(t, "lvl-2", "prog-1", []string{"step-2"}, nil)
	for _, id := range []string{"step-1", "step-2"} {
		env.exec(t, `INSERT INTO persistent_tasks(id,colony_address,creator_address,status,created_at) VALUES (?,?,?,?,?)`,
			id, colonyAddr, founderAddr, "Active", "2024-01-01T00:00:00Z")
	}
	env.exec(t, `INSERT INTO submissions(id,creator_address,persistent_task_id,submission,status,created_at) VALUES (?,?,?,?,?,?)`,
		"sub-open", aliceAddr, "step-1", "work", "Open", "2024-01-02T00:00:00Z")
	env.exec(t, `INSERT INTO submissions(id,creator_address,persistent_task_id,submission,status,created_at) VALUES (?,?,?,?,?,?)`,
		"sub-accepted", bobAddr, "step-1", "work", "Accepted", "2024-01-01T00:00:00Z")
	env.exec(t, `INSERT INTO submissions(id,creator_address,persistent_task_id,submission,status,created_at) VALUES (?,?,?,?,?,?)`,
		"sub-open-2", bobAddr, "step-2", "work", "Open", "2024-01-03T00:00:00Z")

	subs, err := env.Engine.Repo.GetProgramSubmissions(env.Ctx, "prog-1")
	if err != nil {
		t.Fatalf("program submissions: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("want 2 open submissions, got %d", len(subs))
	}
	byID := map[string]string{}
	for _, ps := range subs {
		byID[ps.ID] = ps.LevelID
	}
	if byID["sub-open"] != "lvl-1" || byID["sub-open-2"] != "lvl-2" {
		t.Fatalf("level mapping wrong: %v", byID)
	}
}

func TestUserCompletedLevelsColonyScoped(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.exec(t, `INSERT INTO colonies(colony_address,colony_name,founder_address,created_at) VALUES (?,?,?,?)`,
		"0xother", "othercolony", founderAddr, "2024-01-01T00:00:00Z")
	env.addProgram(t, "prog-1", []string{"lvl-1"}, []string{aliceAddr})
	env.exec(t, `INSERT INTO programs(id,colony_address,creator_address,level_ids,enrolled_user_addresses,status,created_at) VALUES (?,?,?,?,?,?,?)`,
		"prog-other", "0xother", founderAddr, jsonList("lvl-other"), jsonList(aliceAddr), "Active", "2024-01-01T00:00:00Z")
	env.addLevel(t, "lvl-1", "prog-1", nil, []string{aliceAddr})
	env.addLevel(t, "lvl-other", "prog-other", nil, []string{aliceAddr})

	ls, err := env.Engine.Repo.UserCompletedLevels(env.Ctx, aliceAddr, colonyAddr)
	if err != nil {
		t.Fatalf("completed levels: %v", err)
	}
	if len(ls) != 1 || ls[0].ID != "lvl-1" {
		t.Fatalf("want only lvl-1, got %+v", ls)
	}
}

func TestUserOrMinimal(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, aliceAddr, "alice")

	u, err := env.Engine.UserOrMinimal(env.Ctx, aliceAddr)
	if err != nil || u.Username != "alice" {
		t.Fatalf("known user: %+v %v", u, err)
	}
	u, err = env.Engine.UserOrMinimal(env.Ctx, carolAddr)
	if err != nil {
		t.Fatalf("minimal user: %v", err)
	}
	if u.WalletAddress != carolAddr || u.Username != "" {
		t.Fatalf("minimal user wrong: %+v", u)
	}
	if u.ColonyAddresses == nil || u.TaskIDs == nil {
		t.Fatalf("minimal user lists must be empty, not nil: %+v", u)
	}
}

func TestGetExpandedTask(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.addUser(t, bobAddr, "bob")
	worker := bobAddr
	env.addTask(t, "task-1", &worker)
	env.appendEvent(t, founderAddr, "task-1", "task",
		eventlog.CreateTaskEvent{TaskID: "task-1", EthDomainID: 1}, bobAddr)
	env.appendEvent(t, founderAddr, "task-1", "task",
		eventlog.AssignWorkerEvent{TaskID: "task-1", WorkerAddress: bobAddr}, bobAddr)
	env.appendEvent(t, founderAddr, "task-2", "task",
		eventlog.CreateTaskEvent{TaskID: "task-2", EthDomainID: 1})

	et, err := env.Engine.GetExpandedTask(env.Ctx, "task-1")
	if err != nil {
		t.Fatalf("expanded task: %v", err)
	}
	if et.Worker == nil || et.Worker.Username != "bob" {
		t.Fatalf("worker: %+v", et.Worker)
	}
	if len(et.Events) != 2 {
		t.Fatalf("want 2 task events, got %d", len(et.Events))
	}
	// History is oldest first.
	if et.Events[0].Type != eventlog.TypeCreateTask || et.Events[1].Type != eventlog.TypeAssignWorker {
		t.Fatalf("event order: %s, %s", et.Events[0].Type, et.Events[1].Type)
	}
}

func TestColonyTasksWithEvents(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.addTask(t, "task-1", nil)
	env.addTask(t, "task-2", nil)
	env.appendEvent(t, founderAddr, "task-1", "task",
		eventlog.CreateTaskEvent{TaskID: "task-1", EthDomainID: 1})

	tasks, err := env.Engine.ColonyTasksWithEvents(env.Ctx, colonyAddr)
	if err != nil {
		t.Fatalf("colony tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("want 2 tasks, got %d", len(tasks))
	}
	byID := map[string]int{}
	for _, et := range tasks {
		byID[et.Task.ID] = len(et.Events)
	}
	if byID["task-1"] != 1 || byID["task-2"] != 0 {
		t.Fatalf("event counts wrong: %v", byID)
	}
}

func TestWriterDeduplicatesRecipients(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.appendEvent(t, founderAddr, "task-1", "task",
		eventlog.CreateWorkRequestEvent{TaskID: "task-1"}, aliceAddr, aliceAddr, "", bobAddr)

	var count int
	err := env.Engine.DB.QueryRowContext(env.Ctx,
		`SELECT COUNT(*) FROM notification_recipients`).Scan(&count)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("want 2 recipient rows, got %d", count)
	}
}

func TestWriterNoRecipientsNoNotification(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	ev := env.appendEvent(t, founderAddr, colonyAddr, "colony",
		eventlog.CreateDomainEvent{EthDomainID: 2, ColonyAddress: colonyAddr})

	var count int
	if err := env.Engine.DB.QueryRowContext(env.Ctx, `SELECT COUNT(*) FROM notifications`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("no fan-out expected, got %d notifications", count)
	}
	// The event itself is still in the log.
	got, err := env.Engine.Repo.GetEventByID(env.Ctx, ev.ID)
	if err != nil {
		t.Fatalf("event lookup: %v", err)
	}
	if got.Type != eventlog.TypeCreateDomain {
		t.Fatalf("event type: %s", got.Type)
	}
}

func TestSubmissionUniquePerUserAndTask(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.exec(t, `INSERT INTO persistent_tasks(id,colony_address,creator_address,status,created_at) VALUES (?,?,?,?,?)`,
		"step-1", colonyAddr, founderAddr, "Active", "2024-01-01T00:00:00Z")
	env.exec(t, `INSERT INTO submissions(id,creator_address,persistent_task_id,submission,status,created_at) VALUES (?,?,?,?,?,?)`,
		"sub-1", aliceAddr, "step-1", "work", "Open", "2024-01-01T00:00:00Z")

	_, err := env.Engine.DB.ExecContext(env.Ctx,
		`INSERT INTO submissions(id,creator_address,persistent_task_id,submission,status,created_at) VALUES (?,?,?,?,?,?)`,
		"sub-2", aliceAddr, "step-1", "work again", "Open", "2024-01-02T00:00:00Z")
	if err == nil {
		t.Fatal("duplicate live submission should be rejected")
	}
	// A deleted submission frees the slot for a fresh one.
	env.exec(t, `UPDATE submissions SET status='Deleted' WHERE id='sub-1'`)
	env.exec(t, `INSERT INTO submissions(id,creator_address,persistent_task_id,submission,status,created_at) VALUES (?,?,?,?,?,?)`,
		"sub-3", aliceAddr, "step-1", "work again", "Open", "2024-01-03T00:00:00Z")
}

func TestRequestCacheMemoizesWithinRequest(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.Engine.Cache.TTL = time.Minute
	env.Engine.Cache.MaxEntries = 64
	ctx := env.Engine.RequestContext(env.Ctx)

	c1, err := env.Engine.Repo.GetColonyByAddress(ctx, colonyAddr)
	if err != nil {
		t.Fatalf("first read: %v", err)
	}
	// A write after the first read stays invisible inside the same request.
	env.exec(t, `UPDATE colonies SET colony_name='renamed' WHERE colony_address=?`, colonyAddr)
	c2, err := env.Engine.Repo.GetColonyByAddress(ctx, colonyAddr)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if c2.ColonyName != c1.ColonyName {
		t.Fatalf("cached read changed: %q vs %q", c1.ColonyName, c2.ColonyName)
	}
	// A new request sees fresh state.
	c3, err := env.Engine.Repo.GetColonyByAddress(env.Engine.RequestContext(env.Ctx), colonyAddr)
	if err != nil {
		t.Fatalf("fresh read: %v", err)
	}
	if c3.ColonyName != "renamed" {
		t.Fatalf("fresh request should see the write, got %q", c3.ColonyName)
	}
}

func TestRequestCacheDisabledByDefault(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	ctx := env.Engine.RequestContext(env.Ctx)

	if _, err := env.Engine.Repo.GetColonyByAddress(ctx, colonyAddr); err != nil {
		t.Fatalf("first read: %v", err)
	}
	env.exec(t, `UPDATE colonies SET colony_name='renamed' WHERE colony_address=?`, colonyAddr)
	c, err := env.Engine.Repo.GetColonyByAddress(ctx, colonyAddr)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if c.ColonyName != "renamed" {
		t.Fatalf("disabled cache must not memoize, got %q", c.ColonyName)
	}
}

func TestColonyEventsUnionScope(t *testing.T) {
	env := newTestEnv(t)
	env.addColony(t)
	env.appendEvent(t, founderAddr, colonyAddr, "colony",
		eventlog.CreateDomainEvent{EthDomainID: 2, ColonyAddress: colonyAddr})
	env.appendEvent(t, founderAddr, "task-1", "task",
		eventlog.CreateTaskEvent{TaskID: "task-1", EthDomainID: 1, ColonyAddress: colonyAddr})
	env.appendEvent(t, founderAddr, "task-9", "task",
		eventlog.CreateTaskEvent{TaskID: "task-9", EthDomainID: 1, ColonyAddress: "0xother"})

	evs, err := env.Engine.Repo.ColonyEvents(env.Ctx, colonyAddr)
	if err != nil {
		t.Fatalf("colony events: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("want 2 colony events, got %d", len(evs))
	}
	for i := 1; i < len(evs); i++ {
		if !(evs[i-1].ID < evs[i].ID) {
			t.Fatalf("events not oldest first: %s then %s", evs[i-1].ID, evs[i].ID)
		}
	}
}
