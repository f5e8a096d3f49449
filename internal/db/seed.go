package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Spok95/sportclub-bot/internal/models"
)

const defaultTrainerInfo = "Мастер спорта международного класса по дзюдо. " +
	"Многократный призёр и чемпион чемпионатов России, 8-кратный медалист кубков Европы, бронзовый призёр первенства Европы. " +
	"Имеет педагогическое и юридическое образование. В основу ставит спортивную дисциплину и уважение к старшим. " +
	"Опыт работы более 4 лет."

// DefaultGroups — справочник групп клуба, заливается при первом запуске.
var DefaultGroups = []models.Group{
	{
		Name:                "Дзюдо младшая группа",
		Description:         "Группа для детей 5-7 лет",
		DetailedDescription: "Дзюдо для самых маленьких: координация, гибкость и дисциплина в игровой форме.",
		TrainerName:         "Галоян Пайлак Араратович",
		TrainerInfo:         defaultTrainerInfo,
		Category:            "5-7",
		Price8:              4000,
		Price12:             5000,
		PriceSingle:         700,
	},
	{
		Name:                "Дзюдо старшая группа",
		Description:         "Группа для детей 7 лет и старше",
		DetailedDescription: "Техника, соревнования, развитие физических качеств и спортивного характера.",
		TrainerName:         "Галоян Пайлак Араратович",
		TrainerInfo:         defaultTrainerInfo,
		Category:            "7+",
		Price8:              4000,
		Price12:             5000,
		PriceSingle:         700,
	},
	{
		Name:                "Гимнастика",
		Description:         "Группа детей от 3 до 10 лет",
		DetailedDescription: "Растяжка, элементы акробатики, работа с предметами.",
		TrainerName:         "Галоян Пайлак Араратович",
		TrainerInfo:         defaultTrainerInfo,
		Category:            "3-10",
		Price8:              4000,
		Price12:             5000,
		PriceSingle:         700,
	},
	{
		Name:                "ММА",
		Description:         "Смешанные единоборства для подростков от 14 лет и взрослых",
		DetailedDescription: "Ударная техника, борьба, работа в партере.",
		TrainerName:         "Галоян Пайлак Араратович",
		TrainerInfo:         defaultTrainerInfo,
		Category:            "14+",
		Price8:              4000,
		Price12:             5000,
		PriceSingle:         900,
	},
	{
		Name:                "Женский фитнес",
		Description:         "Фитнес-программы для женщин",
		DetailedDescription: "Кардио, силовые упражнения, растяжка и функциональный тренинг.",
		TrainerName:         "Анна Морозова",
		TrainerInfo:         "Сертифицированный тренер по фитнесу, специалист по женскому здоровью и питанию. Опыт 12 лет.",
		Category:            "adult",
		Price8:              4000,
		PriceSingle:         700,
	},
}

// SeedGroups заливает справочник групп, только если таблица пустая.
func SeedGroups(ctx context.Context, database *sql.DB) (int, error) {
	var count int
	if err := database.QueryRowContext(ctx, `SELECT COUNT(*) FROM sport_groups`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sport_groups: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	inserted := 0
	err := WithTx(ctx, database, func(tx *sql.Tx) error {
		for _, g := range DefaultGroups {
			if _, err := CreateGroup(ctx, tx, g); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
