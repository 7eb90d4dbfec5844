package testutil

// Sample payloads in the API's camelCase wire format.
const (
	GamesFixture = `[
  {"id": 1001, "season": 2024, "seasonType": "regular", "startDate": "2024-01-13T19:00:00.000Z",
   "homeTeam": "Duke", "homeConference": "ACC", "homePoints": 80, "homePeriodPoints": [38, 42],
   "awayTeam": "North Carolina", "awayConference": "ACC", "awayPoints": 70, "awayPeriodPoints": [30, 40],
   "neutralSite": false, "attendance": 9314},
  {"id": 1002, "season": 2024, "seasonType": "regular", "startDate": "2024-01-16T19:00:00.000Z",
   "homeTeam": "Kansas", "homeConference": "Big 12", "homePoints": null,
   "awayTeam": "Baylor", "awayConference": "Big 12", "awayPoints": "NULL"}
]`

	TeamsFixture = `[
  {"id": 64, "school": "Duke", "mascot": "Blue Devils", "abbreviation": "DUKE", "conference": "ACC",
   "primaryColor": "001A57", "currentVenue": "Cameron Indoor Stadium"},
  {"id": 251, "school": "Texas", "mascot": "Longhorns", "abbreviation": "TEX", "conference": "Big 12"}
]`

	RosterFixture = `[{"teamId": 64, "team": "Duke", "conference": "ACC", "season": 2024,
  "players": [
    {"id": 1, "name": "Jared McCain", "position": "G", "height": 75, "weight": 203, "startSeason": 2024,
     "hometown": {"city": "Corona", "state": "CA", "country": "USA", "latitude": "33.87", "longitude": "-117.56"}},
    {"id": 2, "name": "Kyle Filipowski", "position": "C", "height": 84, "startSeason": 2022,
     "hometown": {"city": "NULL", "state": "NY", "country": "USA"}}
  ]}]`

	PlaysFixture = `[
  {"id": 1, "gameId": 1001, "period": 1, "clock": "19:40", "homeScore": 0, "awayScore": 0, "playType": "JumpShot", "scoringPlay": false},
  {"id": 2, "gameId": 1001, "period": 1, "clock": "19:12", "homeScore": 2, "awayScore": 0, "playType": "LayUpShot", "scoringPlay": true, "scoreValue": 2},
  {"id": 3, "gameId": 1001, "period": 2, "clock": "05:00", "homeScore": 60, "awayScore": 55, "playType": "ThreePointJumper", "scoringPlay": true, "scoreValue": 3}
]`

	BoxscoreFixture = `[{"gameId": 1001, "season": 2024,
  "homeTeam": {"teamId": 64, "team": "Duke", "points": 80, "rebounds": "41"},
  "awayTeam": {"teamId": 153, "team": "North Carolina", "points": 70, "rebounds": "NULL"},
  "homePlayers": [
    {"player": {"id": 1, "name": "Jared McCain", "position": "G"}, "points": 24, "minutes": "35"}
  ],
  "awayPlayers": [
    {"player": {"id": 9, "name": "RJ Davis", "position": "G"}, "points": 21, "minutes": 38},
    {"player": {"id": 10, "name": "Armando Bacot", "position": "F"}, "points": "NULL", "minutes": 30}
  ]}]`

	ConferencesFixture = `[
  {"id": 1, "sourceId": "2", "name": "Atlantic Coast Conference", "abbreviation": "ACC", "shortName": "ACC"},
  {"id": 24, "sourceId": "23", "name": "Southeastern Conference", "abbreviation": "SEC", "shortName": "SEC"}
]`
)
