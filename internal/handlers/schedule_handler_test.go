package handlers

import "testing"

func TestScheduleRequestValidate(t *testing.T) {
	base := scheduleRequest{
		Name:   "morning",
		Hour:   9,
		Minute: 30,
		Days:   []int{1, 3, 5},
		Groups: []string{"g1@g.us"},
	}

	tests := []struct {
		name    string
		mutate  func(*scheduleRequest)
		wantErr bool
	}{
		{name: "valid fixed time", mutate: func(r *scheduleRequest) {}},
		{name: "valid cron", mutate: func(r *scheduleRequest) { r.CronExpr = "30 9 * * 1-5" }},
		{name: "cron skips time field checks", mutate: func(r *scheduleRequest) { r.CronExpr = "0 12 * * *"; r.Hour = 99; r.Days = nil }},
		{name: "no groups", mutate: func(r *scheduleRequest) { r.Groups = nil }, wantErr: true},
		{name: "hour too high", mutate: func(r *scheduleRequest) { r.Hour = 24 }, wantErr: true},
		{name: "negative hour", mutate: func(r *scheduleRequest) { r.Hour = -1 }, wantErr: true},
		{name: "minute too high", mutate: func(r *scheduleRequest) { r.Minute = 60 }, wantErr: true},
		{name: "no days", mutate: func(r *scheduleRequest) { r.Days = nil }, wantErr: true},
		{name: "day out of range", mutate: func(r *scheduleRequest) { r.Days = []int{7} }, wantErr: true},
		{name: "invalid cron", mutate: func(r *scheduleRequest) { r.CronExpr = "every tuesday" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.mutate(&req)
			err := req.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
