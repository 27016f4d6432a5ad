package service

// 预置目录内容由内容团队维护，这里只保留一小组默认条目；
// 完整清单通过替换本文件或在部署时注入 SeedCatalog 提供。

// DefaultSeedCatalog 返回随仓库分发的默认预置内容。
func DefaultSeedCatalog() SeedCatalog {
	return SeedCatalog{
		Missions: []MissionSeed{
			{Content: "Cook a dish neither of you has ever tried before, together, without looking at a recipe more than twice.", Category: "Fun"},
			{Content: "Sit face to face and take turns asking three questions you have never asked each other. Answer honestly.", Category: "Romance"},
			{Content: "Recreate your first date as closely as you can, down to what you wore and where you met.", Category: "Romance"},
			{Content: "Spend an evening planning the trip you would take if money were no object. Save the itinerary.", Category: "Adventure"},
		},
		Challenges: []ChallengeSeed{
			{Content: "No phones after dinner for an entire week. The first one to break it plans the next date night.", Category: "Habits"},
			{Content: "Give each other one genuine compliment every morning for seven days, no repeats.", Category: "Kindness"},
			{Content: "Learn the chorus of a song in a language neither of you speaks and perform it together.", Category: "Fun"},
		},
		Scenarios: []ScenarioSeed{
			{
				Setting: "A small train station cafe, late evening",
				Roles:   []string{"A traveller who missed the last train", "The barista closing up"},
				Prompt:  "You have never met. One of you desperately needs a place to wait until morning; the other was about to lock the door.",
				Time:    "8:00 PM",
			},
			{
				Setting: "An art gallery opening",
				Roles:   []string{"The artist", "A critic with a secret"},
				Prompt:  "The critic wrote a scathing review years ago and the artist has just recognised them across the room.",
				Time:    "7:30 PM",
			},
		},
	}
}
