package querybuilder

import "testing"

func TestSelectBuilder(t *testing.T) {
	query, args, err := Select("public_id", "name").
		From("teams").
		Where(Eq("group_code", "A"), IsNull("deleted_at")).
		OrderBy("public_id").
		Limit(4).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	wantQuery := "SELECT public_id, name FROM teams WHERE group_code = $1 AND deleted_at IS NULL ORDER BY public_id LIMIT 4"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 1 || args[0] != "A" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	query, args, err := InsertInto("prediction_history").
		Columns("match_public_id", "winner").
		Values("m-1", "Norway").
		Suffix("RETURNING id").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	wantQuery := "INSERT INTO prediction_history (match_public_id, winner) VALUES ($1, $2) RETURNING id"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "m-1" || args[1] != "Norway" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertModel_SkipsUntaggedFields(t *testing.T) {
	type row struct {
		MatchID  string `db:"match_public_id"`
		Winner   string `db:"winner"`
		Internal string `db:"-"`
		untagged string
	}

	query, args, err := InsertModel("prediction_history", row{MatchID: "m-1", Winner: "Draw", Internal: "x", untagged: "y"}, "ON CONFLICT DO NOTHING")
	if err != nil {
		t.Fatalf("build insert model query: %v", err)
	}

	wantQuery := "INSERT INTO prediction_history (match_public_id, winner) VALUES ($1, $2) ON CONFLICT DO NOTHING"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder(t *testing.T) {
	query, args, err := Update("knockout_matches").
		SetExpr("home_team_public_id", "COALESCE(home_team_public_id, ?)", "nor").
		SetExpr("updated_at", "NOW()").
		Where(Eq("public_id", "ko-73")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE knockout_matches SET home_team_public_id = COALESCE(home_team_public_id, $1), updated_at = NOW() WHERE public_id = $2"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 2 || args[0] != "nor" || args[1] != "ko-73" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestUpdateBuilder_NotEq(t *testing.T) {
	query, args, err := Update("matches").
		Set("status", "FINISHED").
		Where(Eq("public_id", "wc26-001"), NotEq("status", "FINISHED")).
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	wantQuery := "UPDATE matches SET status = $1 WHERE public_id = $2 AND status <> $3"
	if query != wantQuery {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", wantQuery, query)
	}
	if len(args) != 3 || args[2] != "FINISHED" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder(t *testing.T) {
	query, args, err := DeleteFrom("fifa_rankings").ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}
	if query != "DELETE FROM fifa_rankings" || len(args) != 0 {
		t.Fatalf("unexpected delete query: %s %+v", query, args)
	}

	query, args, err = DeleteFrom("prediction_cache").Where(Eq("match_public_id", "m-1")).ToSQL()
	if err != nil {
		t.Fatalf("build filtered delete query: %v", err)
	}
	if query != "DELETE FROM prediction_cache WHERE match_public_id = $1" || len(args) != 1 {
		t.Fatalf("unexpected filtered delete query: %s %+v", query, args)
	}
}
