package managers

import (
	"context"
	"time"

	"github.com/Seklfreak/Lumi/helpers"
	"github.com/Seklfreak/Lumi/models"
	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"
)

// MDbStore implements GuildStore and UserStore on MongoDB.
// Every call runs on its own copy of the session opened by helpers.ConnectMDB.
type MDbStore struct{}

func NewMDbStore() *MDbStore {
	return &MDbStore{}
}

func (s *MDbStore) FindGuild(ctx context.Context, id string) (models.GuildSettings, bool, error) {
	var entry models.GuildSettings
	if err := ctx.Err(); err != nil {
		return entry, false, err
	}
	defer helpers.MdbTimed(models.GuildsTable, "find", time.Now())

	session, collection := helpers.MdbCollection(models.GuildsTable)
	defer session.Close()

	err := collection.FindId(id).One(&entry)
	if helpers.IsMdbNotFound(err) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, storeError(err, "finding guild "+id)
	}
	return entry, true, nil
}

func (s *MDbStore) UpdateGuild(ctx context.Context, id string, data models.GuildSettingsData, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	set := bson.M{}
	unset := bson.M{}
	if data.AllowNonEphemeral != nil {
		set["allowNonEphemeral"] = data.AllowNonEphemeral
	} else if !merge {
		unset["allowNonEphemeral"] = ""
	}
	if data.Autorole != nil {
		set["autorole"] = data.Autorole
	} else if !merge {
		unset["autorole"] = ""
	}

	return s.upsert(models.GuildsTable, id, set, unset)
}

func (s *MDbStore) DeleteGuild(ctx context.Context, id string) error {
	return s.remove(ctx, models.GuildsTable, id)
}

func (s *MDbStore) FindUser(ctx context.Context, id string) (models.UserEntry, bool, error) {
	var entry models.UserEntry
	if err := ctx.Err(); err != nil {
		return entry, false, err
	}
	defer helpers.MdbTimed(models.UsersTable, "find", time.Now())

	session, collection := helpers.MdbCollection(models.UsersTable)
	defer session.Close()

	err := collection.FindId(id).One(&entry)
	if helpers.IsMdbNotFound(err) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, storeError(err, "finding user "+id)
	}
	return entry, true, nil
}

func (s *MDbStore) UpdateUser(ctx context.Context, id string, data models.UserSettingsData, expiredWarnings []string, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	set := bson.M{}
	unset := bson.M{}
	fields := map[string]interface{}{
		"locale":               data.Locale,
		"autoLocale":           data.AutoLocale,
		"ephemeralResponses":   data.EphemeralResponses,
		"ignoreEphemeralRoles": data.IgnoreEphemeralRoles,
		"disabledDM":           data.DisabledDM,
		"gameIcon":             data.GameIcon,
	}
	for field, value := range fields {
		if !isNilPointer(value) {
			set[field] = value
		} else if !merge {
			unset[field] = ""
		}
	}

	expired := make(map[string]bool, len(expiredWarnings))
	for _, kind := range expiredWarnings {
		expired[kind] = true
	}
	if merge {
		for kind, expiry := range data.SuppressedWarnings {
			if !expired[kind] {
				set["suppressedWarnings."+kind] = expiry
			}
		}
		for kind := range expired {
			unset["suppressedWarnings."+kind] = ""
		}
	} else {
		warnings := bson.M{}
		for kind, expiry := range data.SuppressedWarnings {
			if !expired[kind] {
				warnings[kind] = expiry
			}
		}
		if len(warnings) > 0 {
			set["suppressedWarnings"] = warnings
		} else {
			unset["suppressedWarnings"] = ""
		}
	}

	return s.upsert(models.UsersTable, id, set, unset)
}

func (s *MDbStore) DeleteUser(ctx context.Context, id string) error {
	return s.remove(ctx, models.UsersTable, id)
}

func (s *MDbStore) UpsertReminder(ctx context.Context, userID, reminderID string, data models.ReminderData, merge bool) (models.ReminderEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.ReminderEntry{}, err
	}

	entry, found, err := s.updateReminder(userID, reminderID, data, merge)
	if err != nil || found {
		return entry, err
	}

	entry = data.Replace(reminderID)
	err = s.pushReminder(userID, entry)
	if mgo.IsDup(err) {
		// the user document was created by someone else in between, its reminders are updatable now
		entry, found, err = s.updateReminder(userID, reminderID, data, merge)
		if err == nil && !found {
			err = s.pushReminder(userID, entry)
		}
	}
	if err != nil {
		return models.ReminderEntry{}, err
	}
	return entry, nil
}

func (s *MDbStore) UpdateReminder(ctx context.Context, userID, reminderID string, data models.ReminderData) (models.ReminderEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.ReminderEntry{}, false, err
	}
	return s.updateReminder(userID, reminderID, data, true)
}

// updateReminder edits the reminder in place, returns false if the user does not have it
func (s *MDbStore) updateReminder(userID, reminderID string, data models.ReminderData, merge bool) (models.ReminderEntry, bool, error) {
	defer helpers.MdbTimed(models.UsersTable, "update-reminder", time.Now())

	set := bson.M{}
	if merge {
		fields := map[string]interface{}{
			"content":   data.Content,
			"timestamp": data.Timestamp,
			"recursive": data.Recursive,
			"channelId": data.ChannelID,
			"guildId":   data.GuildID,
		}
		for field, value := range fields {
			if !isNilPointer(value) {
				set["reminders.$."+field] = value
			}
		}
	} else {
		set["reminders.$"] = data.Replace(reminderID)
	}

	session, collection := helpers.MdbCollection(models.UsersTable)
	defer session.Close()

	selector := bson.M{"_id": userID, "reminders._id": reminderID}
	if len(set) == 0 {
		// nothing supplied, only report the stored reminder
		var user models.UserEntry
		err := collection.Find(selector).Select(reminderProjection(reminderID)).One(&user)
		return firstReminder(user, err, reminderID)
	}

	var user models.UserEntry
	_, err := collection.Find(selector).
		Select(reminderProjection(reminderID)).
		Apply(mgo.Change{Update: bson.M{"$set": set}, ReturnNew: true}, &user)
	return firstReminder(user, err, reminderID)
}

func (s *MDbStore) pushReminder(userID string, entry models.ReminderEntry) error {
	defer helpers.MdbTimed(models.UsersTable, "push-reminder", time.Now())

	session, collection := helpers.MdbCollection(models.UsersTable)
	defer session.Close()

	_, err := collection.Upsert(
		bson.M{"_id": userID, "reminders._id": bson.M{"$ne": entry.ID}},
		bson.M{"$push": bson.M{"reminders": entry}},
	)
	if mgo.IsDup(err) {
		return err
	}
	return storeError(err, "pushing reminder "+entry.ID)
}

func (s *MDbStore) PullReminder(ctx context.Context, userID, reminderID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	defer helpers.MdbTimed(models.UsersTable, "pull-reminder", time.Now())

	session, collection := helpers.MdbCollection(models.UsersTable)
	defer session.Close()

	err := collection.Update(
		bson.M{"_id": userID, "reminders._id": reminderID},
		bson.M{"$pull": bson.M{"reminders": bson.M{"_id": reminderID}}},
	)
	if helpers.IsMdbNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, storeError(err, "pulling reminder "+reminderID)
	}

	err = collection.Update(
		bson.M{"_id": userID, "reminders": bson.M{"$size": 0}},
		bson.M{"$unset": bson.M{"reminders": ""}},
	)
	if err != nil && !helpers.IsMdbNotFound(err) {
		return true, storeError(err, "unsetting empty reminders of "+userID)
	}
	return true, nil
}

func (s *MDbStore) FindReminders(ctx context.Context, query models.ReminderQuery, skipDisabledDM bool) ([]models.ReminderMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer helpers.MdbTimed(models.UsersTable, "find-reminders", time.Now())

	session, collection := helpers.MdbCollection(models.UsersTable)
	defer session.Close()

	iter := collection.Pipe(reminderPipeline(query, skipDisabledDM)).Iter()

	var user struct {
		ID        string                 `bson:"_id"`
		Reminders []models.ReminderEntry `bson:"reminders"`
	}
	matches := make([]models.ReminderMatch, 0)
	for iter.Next(&user) {
		for _, entry := range user.Reminders {
			matches = append(matches, models.ReminderMatch{UserID: user.ID, Entry: entry})
		}
		user.Reminders = nil
	}
	if err := iter.Close(); err != nil {
		return nil, storeError(err, "scanning reminders")
	}
	return matches, nil
}

// reminderPipeline matches the users owning at least one reminder matching query
// and filters their reminders arrays down to the matching ones
func reminderPipeline(query models.ReminderQuery, skipDisabledDM bool) []bson.M {
	elemMatch := bson.M{}
	conditions := make([]bson.M, 0)

	timestamp := bson.M{}
	if query.TimestampLTE != nil {
		timestamp["$lte"] = *query.TimestampLTE
		conditions = append(conditions, bson.M{"$lte": []interface{}{"$$reminder.timestamp", *query.TimestampLTE}})
	}
	if query.TimestampGT != nil {
		timestamp["$gt"] = *query.TimestampGT
		conditions = append(conditions, bson.M{"$gt": []interface{}{"$$reminder.timestamp", *query.TimestampGT}})
	}
	if len(timestamp) > 0 {
		elemMatch["timestamp"] = timestamp
	}
	if query.Recursive != nil {
		if *query.Recursive {
			elemMatch["recursive"] = true
		} else {
			elemMatch["recursive"] = bson.M{"$ne": true}
		}
		conditions = append(conditions, bson.M{"$eq": []interface{}{
			bson.M{"$ifNull": []interface{}{"$$reminder.recursive", false}}, *query.Recursive,
		}})
	}

	match := bson.M{}
	if len(elemMatch) > 0 {
		match["reminders"] = bson.M{"$elemMatch": elemMatch}
	} else {
		match["reminders.0"] = bson.M{"$exists": true}
	}
	if skipDisabledDM {
		match["disabledDM"] = bson.M{"$ne": true}
	}

	var cond interface{} = true
	if len(conditions) > 0 {
		cond = bson.M{"$and": conditions}
	}

	return []bson.M{
		{"$match": match},
		{"$project": bson.M{
			"reminders": bson.M{"$filter": bson.M{
				"input": "$reminders",
				"as":    "reminder",
				"cond":  cond,
			}},
		}},
	}
}

func reminderProjection(reminderID string) bson.M {
	return bson.M{"reminders": bson.M{"$elemMatch": bson.M{"_id": reminderID}}}
}

func firstReminder(user models.UserEntry, err error, reminderID string) (models.ReminderEntry, bool, error) {
	if helpers.IsMdbNotFound(err) {
		return models.ReminderEntry{}, false, nil
	}
	if err != nil {
		return models.ReminderEntry{}, false, storeError(err, "updating reminder "+reminderID)
	}
	if len(user.Reminders) == 0 {
		return models.ReminderEntry{}, false, nil
	}
	return user.Reminders[0], true, nil
}

func (s *MDbStore) upsert(collectionName models.MongoDbCollection, id string, set, unset bson.M) error {
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	if len(update) == 0 {
		return nil
	}
	defer helpers.MdbTimed(collectionName, "upsert", time.Now())

	session, collection := helpers.MdbCollection(collectionName)
	defer session.Close()

	_, err := collection.UpsertId(id, update)
	return storeError(err, "upserting "+collectionName.String()+" "+id)
}

func (s *MDbStore) remove(ctx context.Context, collectionName models.MongoDbCollection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer helpers.MdbTimed(collectionName, "delete", time.Now())

	session, collection := helpers.MdbCollection(collectionName)
	defer session.Close()

	err := collection.RemoveId(id)
	if helpers.IsMdbNotFound(err) {
		return nil
	}
	return storeError(err, "deleting "+collectionName.String()+" "+id)
}

// isNilPointer reports whether a supplied field pointer is unset
func isNilPointer(value interface{}) bool {
	switch pointer := value.(type) {
	case *string:
		return pointer == nil
	case *bool:
		return pointer == nil
	case *int64:
		return pointer == nil
	}
	return value == nil
}
