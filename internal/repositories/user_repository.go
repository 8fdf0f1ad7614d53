package repositories

import (
	"context"
	"time"

	"github.com/anonto42/storyhive/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserRepository implements UserRepository for MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoUserRepository
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection("users")}
}

// CreateUser inserts a new user. Duplicate usernames or emails fail with Conflict.
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	if user.JoinedDate.IsZero() {
		user.JoinedDate = time.Now()
	}
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}
	_, err := r.collection.InsertOne(ctx, user)
	return translateMongoError(err, "User")
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, translateMongoError(err, "User")
	}
	return &user, nil
}

func (r *MongoUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	objID, err := parseObjectID(id, "User")
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": objID})
}

func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserRepository) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"firebase_uid": firebaseUID})
}

// GetUsersByIDs returns the users that exist among ids; unknown ids are skipped.
func (r *MongoUserRepository) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	objIDs := parseObjectIDs(ids)
	if len(objIDs) == 0 {
		return []models.User{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objIDs}})
	if err != nil {
		return nil, translateMongoError(err, "User")
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err = cursor.All(ctx, &users); err != nil {
		return nil, translateMongoError(err, "User")
	}
	return users, nil
}

func (r *MongoUserRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, translateMongoError(err, "User")
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, translateMongoError(err, "User")
		}
		ids = append(ids, doc.ID.Hex())
	}
	return ids, translateMongoError(cursor.Err(), "User")
}

// UpdateProfile overwrites the given fields and returns the updated user.
func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*models.User, error) {
	objID, err := parseObjectID(id, "User")
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	if update.Username != nil {
		set["username"] = *update.Username
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Bio != nil {
		set["bio"] = *update.Bio
	}
	if update.ProfilePicture != nil {
		set["profile_picture"] = *update.ProfilePicture
	}
	if len(set) == 0 {
		return r.GetUserByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var user models.User
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		return nil, translateMongoError(err, "User")
	}
	return &user, nil
}

func (r *MongoUserRepository) setField(ctx context.Context, id, field string, value interface{}) error {
	objID, err := parseObjectID(id, "User")
	if err != nil {
		return err
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{field: value}})
	if err != nil {
		return translateMongoError(err, "User")
	}
	if res.MatchedCount == 0 {
		return translateMongoError(mongo.ErrNoDocuments, "User")
	}
	return nil
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.setField(ctx, id, "password", passwordHash)
}

func (r *MongoUserRepository) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error {
	return r.setField(ctx, id, "preferences", prefs)
}

func (r *MongoUserRepository) SetFirebaseUID(ctx context.Context, id, firebaseUID string) error {
	return r.setField(ctx, id, "firebase_uid", firebaseUID)
}

// addToSet adds member to the set field of user id. The $ne guard makes the
// update match only when member is absent, so ModifiedCount tells whether
// this call changed the set.
func (r *MongoUserRepository) addToSet(ctx context.Context, id, field, member string) (bool, error) {
	objID, err := parseObjectID(id, "User")
	if err != nil {
		return false, err
	}
	memberID, err := parseObjectID(member, "User")
	if err != nil {
		return false, err
	}
	filter := bson.M{"_id": objID, field: bson.M{"$ne": memberID}}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$addToSet": bson.M{field: memberID}})
	if err != nil {
		return false, translateMongoError(err, "User")
	}
	if res.MatchedCount == 0 {
		return false, r.ensureExists(ctx, objID)
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoUserRepository) pullFromSet(ctx context.Context, id, field, member string) (bool, error) {
	objID, err := parseObjectID(id, "User")
	if err != nil {
		return false, err
	}
	memberID, err := parseObjectID(member, "User")
	if err != nil {
		return false, err
	}
	filter := bson.M{"_id": objID, field: memberID}
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$pull": bson.M{field: memberID}})
	if err != nil {
		return false, translateMongoError(err, "User")
	}
	if res.MatchedCount == 0 {
		return false, r.ensureExists(ctx, objID)
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoUserRepository) ensureExists(ctx context.Context, objID primitive.ObjectID) error {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objID}, options.Count().SetLimit(1))
	if err != nil {
		return translateMongoError(err, "User")
	}
	if count == 0 {
		return translateMongoError(mongo.ErrNoDocuments, "User")
	}
	return nil
}

func (r *MongoUserRepository) AddFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	return r.addToSet(ctx, userID, "following", targetID)
}

func (r *MongoUserRepository) RemoveFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	return r.pullFromSet(ctx, userID, "following", targetID)
}

func (r *MongoUserRepository) AddFollower(ctx context.Context, userID, followerID string) (bool, error) {
	return r.addToSet(ctx, userID, "followers", followerID)
}

func (r *MongoUserRepository) RemoveFollower(ctx context.Context, userID, followerID string) (bool, error) {
	return r.pullFromSet(ctx, userID, "followers", followerID)
}

// PullFromAllEdges removes userID from every followers and following set.
func (r *MongoUserRepository) PullFromAllEdges(ctx context.Context, userID string) error {
	objID, err := parseObjectID(userID, "User")
	if err != nil {
		return err
	}
	if _, err := r.collection.UpdateMany(ctx, bson.M{"followers": objID}, bson.M{"$pull": bson.M{"followers": objID}}); err != nil {
		return translateMongoError(err, "User")
	}
	if _, err := r.collection.UpdateMany(ctx, bson.M{"following": objID}, bson.M{"$pull": bson.M{"following": objID}}); err != nil {
		return translateMongoError(err, "User")
	}
	return nil
}

func (r *MongoUserRepository) DeleteUser(ctx context.Context, id string) error {
	objID, err := parseObjectID(id, "User")
	if err != nil {
		return err
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return translateMongoError(err, "User")
	}
	if res.DeletedCount == 0 {
		return translateMongoError(mongo.ErrNoDocuments, "User")
	}
	return nil
}
