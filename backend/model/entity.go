package model

import "time"

// SavingsGroup is the root of the entity hierarchy. Only the columns the
// document subsystem needs are modelled here; the full group workflow lives
// in the main application schema.
type SavingsGroup struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
}

func (g *SavingsGroup) TableName() string {
	return "savings_groups"
}

// Meeting belongs to a group.
type Meeting struct {
	Id          int64     `json:"id" gorm:"primaryKey"`
	GroupId     int64     `json:"group_id" gorm:"index"`
	MeetingDate time.Time `json:"meeting_date"`
}

func (m *Meeting) TableName() string {
	return "meetings"
}

// MeetingActivity belongs to a meeting (savings collection, loan disbursement,
// fine collection and so on).
type MeetingActivity struct {
	Id           int64  `json:"id" gorm:"primaryKey"`
	MeetingId    int64  `json:"meeting_id" gorm:"index"`
	ActivityType string `json:"activity_type" gorm:"size:50"`
}

func (a *MeetingActivity) TableName() string {
	return "meeting_activities"
}

// MeetingsForGroup returns all meetings in a group.
func MeetingsForGroup(groupId int64) ([]*Meeting, error) {
	var meetings []*Meeting
	err := DB.Where("group_id = ?", groupId).Find(&meetings).Error
	return meetings, err
}

// ActivitiesForMeeting returns all activities in a meeting.
func ActivitiesForMeeting(meetingId int64) ([]*MeetingActivity, error) {
	var activities []*MeetingActivity
	err := DB.Where("meeting_id = ?", meetingId).Find(&activities).Error
	return activities, err
}
