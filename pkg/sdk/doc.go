// Package dbas embeds the sound matching engine in a Go program.
//
// The engine loads a catalog of rated sounds, the correlations between the
// rating dimensions and, optionally, per-group liking and familiarity scores.
// It then ranks sounds by their distance to a target profile.
//
//	engine, _ := dbas.New(ctx, dbas.WithFiles(dbas.Files{
//	    Ratings:      "data/median_ratings.csv",
//	    Correlations: "data/correlations.csv",
//	    Groups:       "data/groups.csv",
//	    Scores:       "data/scores.csv",
//	}))
//	defer engine.Close()
//
//	sel, _ := engine.Match(ctx, dbas.Query{
//	    Targets: []dbas.Target{{Dimension: "positivity", Value: 0.8}},
//	    Metric:  dbas.Mahalanobis,
//	    Demographics: dbas.Demographics{Genders: []string{"Female"}},
//	    MinLiking: 50,
//	    TopN:      5,
//	})
//
// Reference tables may also be passed in memory with WithTables.
// WithValkey or WithRedis enables a shared result cache.
package dbas
